package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/services"
)

type recordingProcessor struct {
	ids []string
	err error
}

func (r *recordingProcessor) ProcessDocument(ctx context.Context, documentID string) error {
	r.ids = append(r.ids, documentID)
	return r.err
}

func TestNewIndexDocumentTask(t *testing.T) {
	task, err := NewIndexDocumentTask("doc-1")
	require.NoError(t, err)
	assert.Equal(t, TaskIndexDocument, task.Type())

	var payload IndexDocumentPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "doc-1", payload.DocumentID)
}

func TestProcessIndexDocument(t *testing.T) {
	proc := &recordingProcessor{}
	p := NewTaskProcessor(proc)

	task, err := NewIndexDocumentTask("doc-1")
	require.NoError(t, err)
	require.NoError(t, p.ProcessIndexDocument(context.Background(), task))
	assert.Equal(t, []string{"doc-1"}, proc.ids)
}

func TestProcessIndexDocument_RetryPolicy(t *testing.T) {
	task, err := NewIndexDocumentTask("doc-1")
	require.NoError(t, err)

	tests := []struct {
		name      string
		err       error
		skipRetry bool
	}{
		{"missing document", fmt.Errorf("%w: doc-1", services.ErrNotFound), true},
		{"bad pdf", fmt.Errorf("%w: broken", services.ErrInvalidInput), true},
		{"embedding outage", fmt.Errorf("%w: down", services.ErrEmbeddingUnavailable), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTaskProcessor(&recordingProcessor{err: tt.err})
			err := p.ProcessIndexDocument(context.Background(), task)
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestProcessIndexDocument_BadPayload(t *testing.T) {
	p := NewTaskProcessor(&recordingProcessor{})
	err := p.ProcessIndexDocument(context.Background(), asynq.NewTask(TaskIndexDocument, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = p.ProcessIndexDocument(context.Background(), asynq.NewTask(TaskIndexDocument, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestRedisClientOpt(t *testing.T) {
	opt := RedisClientOpt(&config.Config{RedisURL: "redis://:secret@cache:6380/2"})
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
}
