package ai

import (
	"context"
	"errors"
	"fmt"

	"pdf-chat-backend/internal/config"
)

var (
	// ErrCircuitOpen is returned while a provider's circuit breaker is open.
	ErrCircuitOpen = errors.New("provider circuit open")

	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator turns a prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewEmbedder builds the configured embedding provider wrapped in a Guard.
func NewEmbedder(ctx context.Context, cfg *config.Config, onStateChange StateChangeFunc) (Embedder, error) {
	var inner Embedder
	switch cfg.EmbeddingsProvider {
	case "ollama", "":
		inner = NewOllamaEmbedder(OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaEmbedModel,
		})
	case "google":
		g, err := NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	guard := NewGuard(GuardSettings{
		Name:          "embeddings-" + cfg.EmbeddingsProvider,
		OnStateChange: onStateChange,
	})
	return &GuardedEmbedder{Embedder: inner, guard: guard}, nil
}

// NewGenerator builds the configured language model provider wrapped in a Guard.
func NewGenerator(ctx context.Context, cfg *config.Config, onStateChange StateChangeFunc) (Generator, error) {
	var inner Generator
	switch cfg.LLMProvider {
	case "groq", "":
		inner = NewGroqGenerator(GroqConfig{
			BaseURL: cfg.GroqBaseURL,
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
		})
	case "ollama":
		inner = NewOllamaGenerator(OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.OllamaLLMModel,
		})
	case "gemini":
		g, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}

	guard := NewGuard(GuardSettings{
		Name:              "llm-" + cfg.LLMProvider,
		RequestsPerMinute: cfg.LLMRequestsPerMinute,
		OnStateChange:     onStateChange,
	})
	return &GuardedGenerator{Generator: inner, guard: guard}, nil
}

// Close releases provider resources when the provider holds any.
func Close(v any) error {
	type unwrapper interface{ Unwrap() any }
	if u, ok := v.(unwrapper); ok {
		v = u.Unwrap()
	}
	if c, ok := v.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
