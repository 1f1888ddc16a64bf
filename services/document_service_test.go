package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chat-backend/internal/repository"
	"pdf-chat-backend/internal/session"
	"pdf-chat-backend/internal/vectorstore"
	"pdf-chat-backend/models"
)

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n%%EOF\n")

type documentFixture struct {
	dir       string
	repo      *repository.MemoryDocumentRepository
	store     *vectorstore.FileStore
	index     *Index
	embedder  *wordEmbedder
	sessions  *session.MemoryStore
	extractor *staticExtractor
	enqueuer  *stubEnqueuer
	docs      *DocumentService
}

func newDocumentFixture(t *testing.T, async bool) *documentFixture {
	t.Helper()
	f := &documentFixture{
		dir:      t.TempDir(),
		repo:     repository.NewMemoryDocumentRepository(),
		store:    vectorstore.NewMemoryStore(),
		embedder: &wordEmbedder{},
		sessions: session.NewMemoryStore(session.MemoryOptions{}),
		extractor: &staticExtractor{pages: []models.Page{
			{Number: 1, Text: "Alpha Beta Gamma."},
			{Number: 2, Text: "Delta Epsilon."},
		}},
		enqueuer: &stubEnqueuer{},
	}
	f.index = NewIndex(f.store, f.embedder, nil)

	storage, err := NewFileStorage(f.dir)
	require.NoError(t, err)

	opts := DocumentServiceOptions{MaxFileSize: 1 << 20}
	if async {
		opts.Enqueuer = f.enqueuer
	}
	f.docs = NewDocumentService(f.repo, f.index, f.sessions, storage, f.extractor, NewChunker(0, 0), opts)
	return f
}

func TestUpload_IndexesDocument(t *testing.T) {
	f := newDocumentFixture(t, false)
	ctx := context.Background()

	doc, err := f.docs.Upload(ctx, "report.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "report.pdf", doc.Name)
	assert.Equal(t, models.StatusReady, doc.Status)
	assert.Equal(t, 2, doc.Pages)
	assert.Equal(t, 2, doc.ChunkCount)
	assert.Len(t, doc.Checksum, 64)
	assert.Equal(t, filepath.Join(f.dir, doc.ID+".pdf"), doc.FilePath)

	stored, err := os.ReadFile(doc.FilePath)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, stored)

	assert.Equal(t, 2, f.store.Count(doc.ID))
	entries, err := f.index.Search(ctx, "Delta", doc.ID, 3)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "report.pdf", entries[0].Chunk.Metadata["source"])

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
}

func TestUpload_RejectsBadInput(t *testing.T) {
	f := newDocumentFixture(t, false)
	ctx := context.Background()

	_, err := f.docs.Upload(ctx, "notes.txt", bytes.NewReader(samplePDF))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), MsgOnlyPDF)

	_, err = f.docs.Upload(ctx, "fake.pdf", strings.NewReader("hello"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	big := append([]byte("%PDF"), bytes.Repeat([]byte("x"), 1<<20)...)
	_, err = f.docs.Upload(ctx, "big.pdf", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), MsgFileTooLarge)

	docs, err := f.docs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUpload_AcceptsUppercaseExtension(t *testing.T) {
	f := newDocumentFixture(t, false)
	_, err := f.docs.Upload(context.Background(), "REPORT.PDF", bytes.NewReader(samplePDF))
	assert.NoError(t, err)
}

func TestUpload_EmbeddingFailureLeavesNothing(t *testing.T) {
	f := newDocumentFixture(t, false)
	f.embedder.err = errUpstream

	_, err := f.docs.Upload(context.Background(), "report.pdf", bytes.NewReader(samplePDF))
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)

	docs, err := f.docs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	files, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUpload_ExtractionFailureIsInvalidInput(t *testing.T) {
	f := newDocumentFixture(t, false)
	f.extractor.err = errUpstream

	_, err := f.docs.Upload(context.Background(), "report.pdf", bytes.NewReader(samplePDF))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadAsync_QueuesAndProcesses(t *testing.T) {
	f := newDocumentFixture(t, true)
	ctx := context.Background()
	require.True(t, f.docs.CanEnqueue())

	doc, taskID, err := f.docs.UploadAsync(ctx, "report.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)
	assert.Equal(t, "task-"+doc.ID, taskID)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Equal(t, []string{doc.ID}, f.enqueuer.ids)
	assert.Equal(t, 0, f.store.Count(doc.ID))

	require.NoError(t, f.docs.ProcessDocument(ctx, doc.ID))
	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Equal(t, 2, got.ChunkCount)
	assert.Equal(t, 2, f.store.Count(doc.ID))

	// already ready: no duplicate chunks
	require.NoError(t, f.docs.ProcessDocument(ctx, doc.ID))
	assert.Equal(t, 2, f.store.Count(doc.ID))
}

func TestProcessDocument_FailureMarksFailed(t *testing.T) {
	f := newDocumentFixture(t, true)
	ctx := context.Background()

	doc, _, err := f.docs.UploadAsync(ctx, "report.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)

	f.embedder.err = errUpstream
	assert.ErrorIs(t, f.docs.ProcessDocument(ctx, doc.ID), ErrEmbeddingUnavailable)

	got, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	// a retry after recovery succeeds
	f.embedder.err = nil
	require.NoError(t, f.docs.ProcessDocument(ctx, doc.ID))
	assert.Equal(t, 2, f.store.Count(doc.ID))
}

func TestUploadAsync_EnqueueFailure(t *testing.T) {
	f := newDocumentFixture(t, true)
	f.enqueuer.err = errUpstream

	_, _, err := f.docs.UploadAsync(context.Background(), "report.pdf", bytes.NewReader(samplePDF))
	require.Error(t, err)

	docs, err := f.docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusFailed, docs[0].Status)
}

func TestUploadAsync_FallsBackToSync(t *testing.T) {
	f := newDocumentFixture(t, false)
	doc, taskID, err := f.docs.UploadAsync(context.Background(), "report.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)
	assert.Empty(t, taskID)
	assert.Equal(t, models.StatusReady, doc.Status)
}

func TestDelete_CascadesToIndexAndSession(t *testing.T) {
	f := newDocumentFixture(t, false)
	ctx := context.Background()

	doc, err := f.docs.Upload(ctx, "report.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)

	chat := NewChatService(f.index, f.sessions, &scriptedGenerator{}, ChatOptions{})
	_, err = chat.Respond(ctx, "What is on page 2?", doc.ID)
	require.NoError(t, err)

	require.NoError(t, f.docs.Delete(ctx, doc.ID))

	assert.Equal(t, 0, f.store.Count(doc.ID))
	_, err = os.Stat(doc.FilePath)
	assert.True(t, os.IsNotExist(err))
	_, err = f.docs.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := f.index.Search(ctx, "Delta", doc.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// chat after delete answers from empty context with fresh history
	result, err := chat.Respond(ctx, "still there?", doc.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Sources)
	turns, err := chat.History(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, turns, 2)

	assert.ErrorIs(t, f.docs.Delete(ctx, doc.ID), ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	f := newDocumentFixture(t, false)
	ctx := context.Background()

	first, err := f.docs.Upload(ctx, "first.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)
	second, err := f.docs.Upload(ctx, "second.pdf", bytes.NewReader(samplePDF))
	require.NoError(t, err)

	docs, err := f.docs.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	if docs[0].CreatedAt.Equal(docs[1].CreatedAt) {
		t.Skip("timestamps collided")
	}
	assert.Equal(t, second.ID, docs[0].ID)
	assert.Equal(t, first.ID, docs[1].ID)
}
