// Package app wires stores, AI providers and services from configuration.
// The API server and the indexing worker share it.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"pdf-chat-backend/internal/ai"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/queue"
	"pdf-chat-backend/internal/repository"
	"pdf-chat-backend/internal/session"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/internal/vectorstore"
	"pdf-chat-backend/routes"
	"pdf-chat-backend/services"
	"pdf-chat-backend/utils"
)

// App holds everything built from one Config.
type App struct {
	Config  *config.Config
	Metrics *telemetry.Metrics

	Mongo *mongo.Client
	Redis *redis.Client
	Queue *queue.Client

	Store     vectorstore.Store
	Sessions  session.Store
	Embedder  ai.Embedder
	Generator ai.Generator
	Janitor   *services.SessionJanitor

	Index     *services.Index
	Documents *services.DocumentService
	Chat      *services.ChatService
	Export    *services.ExportService
}

// New connects the configured backends and builds the services. On error every
// connection opened so far is closed.
func New(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics}
	if err := a.build(ctx); err != nil {
		a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, metrics := a.Config, a.Metrics
	var err error

	if cfg.MongoURI != "" {
		if a.Mongo, err = config.ConnectMongoDB(cfg); err != nil {
			return err
		}
		logger.Info("connected to MongoDB", "database", cfg.DBName)
	}
	if cfg.RedisURL != "" {
		if a.Redis, err = config.NewRedisClient(cfg); err != nil {
			return err
		}
		logger.Info("connected to Redis")
	}

	var repo repository.DocumentRepository
	if a.Mongo != nil {
		db := a.Mongo.Database(cfg.DBName)
		repo = repository.NewMongoDocumentRepository(db)
	} else {
		logger.Warn("MONGO_URI not set, document records are kept in memory")
		repo = repository.NewMemoryDocumentRepository()
	}

	switch cfg.VectorStore {
	case "mongo":
		if a.Mongo == nil {
			return fmt.Errorf("VECTOR_STORE=mongo needs MONGO_URI")
		}
		a.Store = vectorstore.NewMongoStore(a.Mongo.Database(cfg.DBName))
	default:
		fs, err := vectorstore.NewFileStore(cfg.VectorStorePath)
		if err != nil {
			return err
		}
		a.Store = fs
	}

	switch cfg.SessionStore {
	case "redis":
		if a.Redis == nil {
			return fmt.Errorf("SESSION_STORE=redis needs REDIS_URL")
		}
		a.Sessions = session.NewRedisStore(a.Redis, cfg.SessionTTL)
	default:
		mem := session.NewMemoryStore(session.MemoryOptions{
			MaxSessions: cfg.SessionMax,
			IdleTTL:     cfg.SessionTTL,
		})
		a.Sessions = mem
		a.Janitor = services.NewSessionJanitor(mem, cfg.SessionSweepInterval)
	}

	onStateChange := func(name, from, to string) {
		logger.Warn("circuit breaker state changed", "name", name, "from", from, "to", to)
		metrics.RecordCircuitBreakerState(name, from, to)
	}
	if a.Embedder, err = ai.NewEmbedder(ctx, cfg, onStateChange); err != nil {
		return fmt.Errorf("failed to initialize embeddings: %w", err)
	}
	if a.Generator, err = ai.NewGenerator(ctx, cfg, onStateChange); err != nil {
		return fmt.Errorf("failed to initialize language model: %w", err)
	}

	storage, err := services.NewFileStorage(cfg.UploadDir)
	if err != nil {
		return err
	}

	opts := services.DocumentServiceOptions{
		MaxFileSize: cfg.MaxFileSize,
		Metrics:     metrics,
	}
	if cfg.AsyncIngest {
		a.Queue = queue.NewClient(cfg)
		opts.Enqueuer = a.Queue
	}

	historyTurns := cfg.ChatHistoryTurns
	if historyTurns == 0 {
		historyTurns = -1
	}

	a.Index = services.NewIndex(a.Store, a.Embedder, metrics)
	a.Documents = services.NewDocumentService(
		repo,
		a.Index,
		a.Sessions,
		storage,
		services.NewPDFExtractor(),
		services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		opts,
	)
	a.Chat = services.NewChatService(a.Index, a.Sessions, a.Generator, services.ChatOptions{
		TopK:         cfg.RetrievalTopK,
		HistoryTurns: historyTurns,
		ExcerptChars: cfg.SourceExcerptChars,
		Metrics:      metrics,
	})
	a.Export = services.NewExportService(a.Chat, repo)

	return nil
}

// HealthChecks pings the connected backends.
func (a *App) HealthChecks() map[string]routes.HealthCheck {
	checks := map[string]routes.HealthCheck{}
	if a.Mongo != nil {
		checks["mongodb"] = func(ctx context.Context) error { return a.Mongo.Ping(ctx, nil) }
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// RouterDependencies returns the handler dependencies for routes.SetupRouter.
func (a *App) RouterDependencies() routes.Dependencies {
	return routes.Dependencies{
		Documents: a.Documents,
		Chat:      a.Chat,
		Export:    a.Export,
		Redis:     a.Redis,
		Metrics:   a.Metrics,
		Checks:    a.HealthChecks(),
	}
}

// Close releases every connection in reverse order of creation.
func (a *App) Close(ctx context.Context) {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			logger.Warn("failed to close task queue client", "error", err)
		}
	}
	if a.Generator != nil {
		if err := ai.Close(a.Generator); err != nil {
			logger.Warn("failed to close language model client", "error", err)
		}
	}
	if a.Embedder != nil {
		if err := ai.Close(a.Embedder); err != nil {
			logger.Warn("failed to close embeddings client", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			logger.Warn("failed to close vector store", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("failed to close Redis client", "error", err)
		}
	}
	if a.Mongo != nil {
		ctx, cancel := utils.WithTimeout(ctx)
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			logger.Warn("failed to disconnect MongoDB", "error", err)
		}
	}
}
