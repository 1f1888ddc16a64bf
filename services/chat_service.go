package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pdf-chat-backend/internal/ai"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/session"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/models"
)

const (
	DefaultSourceExcerptChars = 200
	DefaultHistoryTurns       = 6

	excerptMarker = "..."
)

const promptInstruction = `You are a helpful AI assistant that answers questions about PDF documents.
Use the following context to answer the question. If you don't know the answer, say so.
Don't make up information that's not in the context.`

// Retriever is the part of Index the chat pipeline needs.
type Retriever interface {
	Search(ctx context.Context, query, documentID string, k int) ([]models.IndexedEntry, error)
}

type ChatOptions struct {
	TopK int
	// HistoryTurns is how many of the most recent turns go into the prompt. Negative disables history.
	HistoryTurns int
	ExcerptChars int
	Metrics      *telemetry.Metrics
}

// ChatService answers questions about one document at a time using retrieved
// chunks and the document's conversation history.
type ChatService struct {
	retriever Retriever
	sessions  session.Store
	generator ai.Generator
	opts      ChatOptions
	locks     *keyedMutex
}

func NewChatService(retriever Retriever, sessions session.Store, generator ai.Generator, opts ChatOptions) *ChatService {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.HistoryTurns == 0 {
		opts.HistoryTurns = DefaultHistoryTurns
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = DefaultSourceExcerptChars
	}
	return &ChatService{
		retriever: retriever,
		sessions:  sessions,
		generator: generator,
		opts:      opts,
		locks:     newKeyedMutex(),
	}
}

// Respond runs one chat turn. Turns for the same document are serialized from
// history read to commit, so the stored history always matches what the model
// saw. A failed or cancelled turn leaves the session untouched.
func (s *ChatService) Respond(ctx context.Context, message, documentID string) (*models.ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}

	ctx, span := otel.Tracer("pdf-chat-backend/chat").Start(ctx, "chat.respond")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	unlock, err := s.locks.Lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := s.retriever.Search(ctx, message, documentID, s.opts.TopK)
	if err != nil {
		return nil, s.fail(ctx, span, "retrieval", classifyRetrievalError(ctx, err))
	}

	sess, err := s.sessions.GetOrCreate(ctx, documentID)
	if err != nil {
		return nil, s.fail(ctx, span, "session", fmt.Errorf("failed to load session: %w", err))
	}

	var history []models.Turn
	if s.opts.HistoryTurns > 0 {
		history = sess.Last(s.opts.HistoryTurns)
	}
	prompt := BuildPrompt(entries, history, message)

	start := time.Now()
	answer, err := s.generator.Generate(ctx, prompt)
	s.opts.Metrics.RecordGeneration(ctx, time.Since(start).Seconds(), err == nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, s.fail(ctx, span, "cancelled", ctxErr)
		}
		return nil, s.fail(ctx, span, "generation", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err))
	}

	// the caller may have gone away while the model was answering
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, span, "cancelled", err)
	}

	if err := s.sessions.AppendExchange(ctx, documentID, message, answer); err != nil {
		return nil, s.fail(ctx, span, "session", fmt.Errorf("failed to record exchange: %w", err))
	}

	result := &models.ChatResult{
		Message: answer,
		Sources: BuildSources(entries, s.opts.ExcerptChars),
	}
	s.opts.Metrics.RecordChatTurn(ctx, "success", len(result.Sources))
	span.SetAttributes(attribute.Int("chat.sources", len(result.Sources)))
	return result, nil
}

// Reset drops the conversation history of documentID.
func (s *ChatService) Reset(ctx context.Context, documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	unlock, err := s.locks.Lock(ctx, documentID)
	if err != nil {
		return err
	}
	defer unlock()
	return s.sessions.Clear(ctx, documentID)
}

// History returns the conversation of documentID, oldest turn first.
func (s *ChatService) History(ctx context.Context, documentID string) ([]models.Turn, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	sess, err := s.sessions.GetOrCreate(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return sess.Turns(), nil
}

func (s *ChatService) fail(ctx context.Context, span trace.Span, outcome string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	s.opts.Metrics.RecordChatTurn(ctx, outcome, 0)
	if outcome != "cancelled" {
		logger.Warn("chat turn failed", "outcome", outcome, "error", err)
	}
	return err
}

func classifyRetrievalError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrRetrievalUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
}

// BuildContext renders retrieved chunks in rank order, separated by a blank line.
func BuildContext(entries []models.IndexedEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("Content from page %d:\n%s", e.Chunk.Page, e.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt assembles the grounding prompt sent to the language model.
func BuildPrompt(entries []models.IndexedEntry, history []models.Turn, message string) string {
	var b strings.Builder
	b.WriteString(promptInstruction)
	b.WriteString("\n\nContext:\n")
	b.WriteString(BuildContext(entries))
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range history {
			role := "User"
			if t.Role == models.RoleAssistant {
				role = "Assistant"
			}
			b.WriteString(role)
			b.WriteString(": ")
			b.WriteString(t.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(message)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// BuildSources turns ranked entries into excerpts of at most maxChars
// characters, always followed by the ellipsis marker.
func BuildSources(entries []models.IndexedEntry, maxChars int) []models.Source {
	sources := make([]models.Source, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, models.Source{
			Text: truncateRunes(e.Chunk.Text, maxChars) + excerptMarker,
			Page: e.Chunk.Page,
		})
	}
	return sources
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
