package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Groq defaults. Groq serves the OpenAI chat completions API.
const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqConfig configures GroqGenerator.
type GroqConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// GroqGenerator sends the prompt as a single user message.
type GroqGenerator struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

func NewGroqGenerator(cfg GroqConfig) *GroqGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &GroqGenerator{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (g *GroqGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("pdf-chat-backend/ai").Start(ctx, "groq.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", g.model), attribute.Int("llm.prompt_chars", len(prompt)))

	var resp chatCompletionResponse
	err := postJSON(ctx, g.client, g.baseURL+"/chat/completions", g.apiKey, chatCompletionRequest{
		Model:       g.model,
		Messages:    []chatCompletionMessage{{Role: "user", Content: prompt}},
		Temperature: g.temperature,
	}, &resp)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("groq chat completion: %w", err)
	}

	span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
