package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	UploadDir   string
	MaxFileSize int64
	AsyncIngest bool

	// Chunking and retrieval
	ChunkSize          int
	ChunkOverlap       int
	RetrievalTopK      int
	SourceExcerptChars int
	ChatHistoryTurns   int
	ChatTimeout        time.Duration

	// Vector store: "file" keeps a compressed snapshot on disk, "mongo" uses pdf_chunks
	VectorStore     string
	VectorStorePath string
	MongoURI        string
	DBName          string

	// Session store: "memory" or "redis"
	SessionStore         string
	SessionMax           int
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Embeddings configuration
	EmbeddingsProvider    string // "ollama" (default), "google"
	OllamaBaseURL         string
	OllamaEmbedModel      string
	GoogleEmbeddingsModel string

	// Generation configuration
	LLMProvider          string // "groq" (default), "ollama", "gemini"
	GroqAPIKey           string
	GroqBaseURL          string
	GroqModel            string
	OllamaLLMModel       string
	GeminiAPIKey         string
	GeminiModel          string
	LLMRequestsPerMinute int

	// Telemetry
	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		AsyncIngest: getEnvBool("ASYNC_INGEST", false),

		ChunkSize:          getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 200),
		RetrievalTopK:      getEnvInt("RETRIEVAL_TOP_K", 3),
		SourceExcerptChars: getEnvInt("SOURCE_EXCERPT_CHARS", 200),
		ChatHistoryTurns:   getEnvInt("CHAT_HISTORY_TURNS", 6),
		ChatTimeout:        getEnvDuration("CHAT_TIMEOUT", 120*time.Second),

		VectorStore:     getEnv("VECTOR_STORE", "file"),
		VectorStorePath: getEnv("VECTOR_STORE_PATH", "vector_store"),
		MongoURI:        getEnv("MONGO_URI", ""),
		DBName:          getEnv("DB_NAME", "pdf_chat"),

		SessionStore:         getEnv("SESSION_STORE", "memory"),
		SessionMax:           getEnvInt("SESSION_MAX", 1000),
		SessionTTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionSweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "ollama"),
		OllamaBaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaEmbedModel:      getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		LLMProvider:          getEnv("LLM_PROVIDER", "groq"),
		GroqAPIKey:           getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:          getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:            getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		OllamaLLMModel:       getEnv("OLLAMA_LLM_MODEL", "llama3.2"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMRequestsPerMinute: getEnvInt("LLM_REQUESTS_PER_MINUTE", 30),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvFloat64("OTEL_SAMPLE_RATIO", 0.1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the selected providers and stores are usable.
func (cfg *Config) Validate() error {
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be between 0 and CHUNK_SIZE")
	}
	if cfg.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}

	switch cfg.VectorStore {
	case "file":
	case "mongo":
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when VECTOR_STORE=mongo")
		}
	default:
		return fmt.Errorf("unknown VECTOR_STORE: %s", cfg.VectorStore)
	}

	switch cfg.SessionStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE: %s", cfg.SessionStore)
	}

	if cfg.AsyncIngest && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when ASYNC_INGEST is enabled")
	}
	// the worker runs in its own process and must share the index with the server
	if cfg.AsyncIngest && cfg.VectorStore != "mongo" {
		return fmt.Errorf("ASYNC_INGEST requires VECTOR_STORE=mongo")
	}

	switch cfg.EmbeddingsProvider {
	case "ollama":
	case "google":
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for google embeddings - set it in .env file")
		}
	default:
		return fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", cfg.EmbeddingsProvider)
	}

	switch cfg.LLMProvider {
	case "ollama":
	case "groq":
		if cfg.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required - set it in .env file")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %s", cfg.LLMProvider)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
