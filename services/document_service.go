package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/repository"
	"pdf-chat-backend/internal/session"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/models"
	"pdf-chat-backend/utils"
)

const (
	MsgOnlyPDF      = "Only PDF files are allowed"
	MsgFileTooLarge = "File size exceeds maximum limit"
	MsgInvalidPDF   = "Invalid PDF file"
)

// Indexer is the part of Index used by ingestion and deletion.
type Indexer interface {
	Add(ctx context.Context, documentID string, chunks []models.TextChunk) error
	Remove(ctx context.Context, documentID string) error
}

// TaskEnqueuer schedules background indexing of a stored document.
type TaskEnqueuer interface {
	EnqueueIndexDocument(ctx context.Context, documentID string) (string, error)
}

type DocumentServiceOptions struct {
	MaxFileSize int64
	Enqueuer    TaskEnqueuer
	Metrics     *telemetry.Metrics
}

// DocumentService ingests, lists and deletes documents.
type DocumentService struct {
	repo      repository.DocumentRepository
	index     Indexer
	sessions  session.Store
	storage   *FileStorage
	extractor PageExtractor
	chunker   *Chunker
	opts      DocumentServiceOptions
}

func NewDocumentService(
	repo repository.DocumentRepository,
	index Indexer,
	sessions session.Store,
	storage *FileStorage,
	extractor PageExtractor,
	chunker *Chunker,
	opts DocumentServiceOptions,
) *DocumentService {
	return &DocumentService{
		repo:      repo,
		index:     index,
		sessions:  sessions,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		opts:      opts,
	}
}

// CanEnqueue reports whether background indexing is available.
func (s *DocumentService) CanEnqueue() bool {
	return s.opts.Enqueuer != nil
}

// readUpload validates the file name and reads at most MaxFileSize bytes of a PDF.
func (s *DocumentService) readUpload(filename string, r io.Reader) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, MsgOnlyPDF)
	}

	limit := s.opts.MaxFileSize
	if limit <= 0 {
		limit = 50 << 20
	}
	content, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, MsgFileTooLarge)
	}
	if !isPDF(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, MsgInvalidPDF)
	}
	return content, nil
}

// store saves content under a fresh document id and returns the unsaved record.
func (s *DocumentService) store(filename string, content []byte, status string) (*models.Document, error) {
	id := uuid.NewString()
	path, err := s.storage.Save(id, content)
	if err != nil {
		return nil, err
	}

	checksum, err := utils.HashReader(bytes.NewReader(content))
	if err != nil {
		s.storage.Remove(path)
		return nil, err
	}

	now := time.Now().UTC()
	return &models.Document{
		ID:        id,
		Name:      filepath.Base(filename),
		FilePath:  path,
		Checksum:  checksum,
		Size:      int64(len(content)),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Upload stores, extracts, chunks and indexes a PDF before returning. On any
// failure nothing is left behind.
func (s *DocumentService) Upload(ctx context.Context, filename string, r io.Reader) (*models.Document, error) {
	start := time.Now()

	content, err := s.readUpload(filename, r)
	if err != nil {
		return nil, err
	}

	doc, err := s.store(filename, content, models.StatusProcessing)
	if err != nil {
		return nil, err
	}

	pages, chunks, err := s.ingest(ctx, doc.ID, doc.Name, content)
	if err != nil {
		s.storage.Remove(doc.FilePath)
		s.opts.Metrics.RecordIngestion(ctx, time.Since(start).Seconds(), models.StatusFailed, 0)
		return nil, err
	}

	processed := time.Now().UTC()
	doc.Status = models.StatusReady
	doc.Pages = pages
	doc.ChunkCount = chunks
	doc.ProcessedAt = &processed
	doc.UpdatedAt = processed

	if err := s.repo.Create(ctx, doc); err != nil {
		cleanupCtx, cancel := utils.WithTimeout(context.WithoutCancel(ctx))
		defer cancel()
		if rmErr := s.index.Remove(cleanupCtx, doc.ID); rmErr != nil {
			logger.Error("failed to roll back index after save failure", "document_id", doc.ID, "error", rmErr)
		}
		s.storage.Remove(doc.FilePath)
		return nil, err
	}

	s.opts.Metrics.RecordIngestion(ctx, time.Since(start).Seconds(), models.StatusReady, chunks)
	logger.Info("document indexed", "document_id", doc.ID, "name", doc.Name, "pages", pages, "chunks", chunks)
	return doc, nil
}

// UploadAsync stores the PDF as pending and schedules indexing. It falls back
// to Upload when no enqueuer is configured.
func (s *DocumentService) UploadAsync(ctx context.Context, filename string, r io.Reader) (*models.Document, string, error) {
	if s.opts.Enqueuer == nil {
		doc, err := s.Upload(ctx, filename, r)
		return doc, "", err
	}

	content, err := s.readUpload(filename, r)
	if err != nil {
		return nil, "", err
	}

	doc, err := s.store(filename, content, models.StatusPending)
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		s.storage.Remove(doc.FilePath)
		return nil, "", err
	}

	taskID, err := s.opts.Enqueuer.EnqueueIndexDocument(ctx, doc.ID)
	if err != nil {
		s.markFailed(ctx, doc.ID, err)
		return nil, "", fmt.Errorf("failed to enqueue indexing: %w", err)
	}

	logger.Info("document queued for indexing", "document_id", doc.ID, "task_id", taskID)
	return doc, taskID, nil
}

// ProcessDocument indexes a stored document. Chunks from an earlier attempt are
// removed first so retries do not accumulate duplicates.
func (s *DocumentService) ProcessDocument(ctx context.Context, documentID string) error {
	start := time.Now()

	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Status == models.StatusReady {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, doc.ID, repository.StatusUpdate{Status: models.StatusProcessing}); err != nil {
		return err
	}

	content, err := s.storage.Read(doc.FilePath)
	if err != nil {
		s.markFailed(ctx, doc.ID, err)
		return err
	}

	if err := s.index.Remove(ctx, doc.ID); err != nil {
		s.markFailed(ctx, doc.ID, err)
		return err
	}

	pages, chunks, err := s.ingest(ctx, doc.ID, doc.Name, content)
	if err != nil {
		s.markFailed(ctx, doc.ID, err)
		s.opts.Metrics.RecordIngestion(ctx, time.Since(start).Seconds(), models.StatusFailed, 0)
		return err
	}

	if err := s.repo.UpdateStatus(ctx, doc.ID, repository.StatusUpdate{
		Status:     models.StatusReady,
		Pages:      pages,
		ChunkCount: chunks,
	}); err != nil {
		return err
	}

	s.opts.Metrics.RecordIngestion(ctx, time.Since(start).Seconds(), models.StatusReady, chunks)
	logger.Info("document indexed", "document_id", doc.ID, "pages", pages, "chunks", chunks)
	return nil
}

// ingest extracts pages, chunks them and adds the chunks to the index as one batch.
func (s *DocumentService) ingest(ctx context.Context, documentID, name string, content []byte) (int, int, error) {
	ctx, span := otel.Tracer("pdf-chat-backend/documents").Start(ctx, "document.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	pages, err := s.extractor.ExtractPages(ctx, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, 0, ctxErr
		}
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrInvalidInput, MsgInvalidPDF, err)
	}

	chunks := s.chunker.Chunk(pages)
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].Metadata = map[string]string{"source": name}
	}
	span.SetAttributes(attribute.Int("document.pages", len(pages)), attribute.Int("document.chunks", len(chunks)))

	if err := s.index.Add(ctx, documentID, chunks); err != nil {
		return 0, 0, err
	}
	return len(pages), len(chunks), nil
}

func (s *DocumentService) markFailed(ctx context.Context, documentID string, cause error) {
	updateCtx, cancel := utils.WithTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.repo.UpdateStatus(updateCtx, documentID, repository.StatusUpdate{
		Status:       models.StatusFailed,
		ErrorMessage: cause.Error(),
	}); err != nil {
		logger.Error("failed to mark document failed", "document_id", documentID, "error", err)
	}
}

// List returns every document, newest first.
func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.repo.List(ctx)
}

func (s *DocumentService) Get(ctx context.Context, documentID string) (*models.Document, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	return doc, err
}

// Delete removes the document's chunks, conversation, stored file and record.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.index.Remove(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.sessions.Clear(ctx, doc.ID); err != nil {
		logger.Warn("failed to clear session", "document_id", doc.ID, "error", err)
	}
	s.storage.Remove(doc.FilePath)

	if err := s.repo.Delete(ctx, doc.ID); err != nil && !errors.Is(err, repository.ErrDocumentNotFound) {
		return err
	}

	logger.Info("document deleted", "document_id", doc.ID)
	return nil
}
