// Package queue carries background indexing over asynq.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/services"
)

const (
	TaskIndexDocument = "document:index"

	QueueCritical = "critical"
	QueueDefault  = "default"
)

type IndexDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

func NewIndexDocumentTask(documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IndexDocumentPayload{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIndexDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueCritical),
		asynq.TaskID("index:"+documentID),
	), nil
}

// RedisClientOpt builds asynq connection options from the shared Redis settings.
func RedisClientOpt(cfg *config.Config) asynq.RedisClientOpt {
	opts := config.RedisOptions(cfg)
	return asynq.RedisClientOpt{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}
}

// Client enqueues indexing tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{client: asynq.NewClient(RedisClientOpt(cfg))}
}

func (c *Client) EnqueueIndexDocument(ctx context.Context, documentID string) (string, error) {
	task, err := NewIndexDocumentTask(documentID)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// DocumentProcessor indexes a stored document.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID string) error
}

type TaskProcessor struct {
	documents DocumentProcessor
}

func NewTaskProcessor(documents DocumentProcessor) *TaskProcessor {
	return &TaskProcessor{documents: documents}
}

func (p *TaskProcessor) ProcessIndexDocument(ctx context.Context, t *asynq.Task) error {
	var payload IndexDocumentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.DocumentID == "" {
		return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
	}

	logger.Info("indexing document", "document_id", payload.DocumentID)

	err := p.documents.ProcessDocument(ctx, payload.DocumentID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrInvalidInput):
		// retrying cannot fix a missing document or an unreadable PDF
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		return err
	}
}

// NewServeMux routes task types to the processor.
func NewServeMux(p *TaskProcessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIndexDocument, p.ProcessIndexDocument)
	return mux
}
