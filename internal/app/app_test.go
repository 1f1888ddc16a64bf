package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/session"
)

func localConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		UploadDir:          filepath.Join(dir, "uploads"),
		MaxFileSize:        1 << 20,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		RetrievalTopK:      3,
		SourceExcerptChars: 200,
		VectorStore:        "file",
		VectorStorePath:    filepath.Join(dir, "index"),
		SessionStore:       "memory",
		SessionMax:         10,
		EmbeddingsProvider: "ollama",
		OllamaBaseURL:      "http://localhost:11434",
		LLMProvider:        "ollama",
	}
}

func TestNewLocal(t *testing.T) {
	a, err := New(context.Background(), localConfig(t), nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Nil(t, a.Mongo)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Queue)
	assert.NotNil(t, a.Janitor)
	assert.IsType(t, &session.MemoryStore{}, a.Sessions)
	assert.False(t, a.Documents.CanEnqueue())
	assert.Empty(t, a.HealthChecks())

	deps := a.RouterDependencies()
	assert.Same(t, a.Chat, deps.Chat)
	assert.Same(t, a.Documents, deps.Documents)
}

func TestNewRejectsMissingBackends(t *testing.T) {
	cfg := localConfig(t)
	cfg.VectorStore = "mongo"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "MONGO_URI")

	cfg = localConfig(t)
	cfg.SessionStore = "redis"
	_, err = New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "REDIS_URL")
}
