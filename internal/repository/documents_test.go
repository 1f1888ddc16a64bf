package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-chat-backend/models"
)

func exerciseRepository(t *testing.T, repo DocumentRepository) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	older := &models.Document{ID: uuid.NewString(), Name: "old.pdf", Status: models.StatusPending, CreatedAt: base}
	newer := &models.Document{ID: uuid.NewString(), Name: "new.pdf", Status: models.StatusPending, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new.pdf", docs[0].Name)
	assert.Equal(t, "old.pdf", docs[1].Name)

	require.NoError(t, repo.UpdateStatus(ctx, older.ID, StatusUpdate{
		Status: models.StatusReady, Pages: 3, ChunkCount: 7, Checksum: "abc",
	}))
	got, err := repo.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Equal(t, 3, got.Pages)
	assert.Equal(t, 7, got.ChunkCount)
	assert.Equal(t, "abc", got.Checksum)
	assert.NotNil(t, got.ProcessedAt)

	require.NoError(t, repo.UpdateStatus(ctx, newer.ID, StatusUpdate{Status: models.StatusFailed, ErrorMessage: "boom"}))
	got, err = repo.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.ErrorMessage)

	require.NoError(t, repo.Delete(ctx, older.ID))
	_, err = repo.Get(ctx, older.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, older.ID), ErrDocumentNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, older.ID, StatusUpdate{Status: models.StatusReady}), ErrDocumentNotFound)
}

func TestMemoryDocumentRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryDocumentRepository())
}

func TestMemoryDocumentRepository_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository()
	require.NoError(t, repo.Create(ctx, &models.Document{ID: "a", Name: "a.pdf"}))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	got.Name = "changed"

	again, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", again.Name)

	assert.Error(t, repo.Create(ctx, &models.Document{ID: "a"}))
}

func TestMongoDocumentRepository(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	db := client.Database("pdf_chat_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	exerciseRepository(t, NewMongoDocumentRepository(db))
}
