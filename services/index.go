package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"pdf-chat-backend/internal/ai"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/internal/vectorstore"
	"pdf-chat-backend/models"
)

// DefaultTopK is the number of chunks returned by Search when k is not positive.
const DefaultTopK = 3

// Index embeds chunks and answers document-scoped similarity searches.
// It owns the embedding vectors; callers only ever see chunks and distances.
type Index struct {
	store    vectorstore.Store
	embedder ai.Embedder
	metrics  *telemetry.Metrics
}

func NewIndex(store vectorstore.Store, embedder ai.Embedder, metrics *telemetry.Metrics) *Index {
	return &Index{store: store, embedder: embedder, metrics: metrics}
}

// Add embeds chunks and commits them under documentID as one batch. Nothing is
// written when embedding fails. Calling Add twice for a document accumulates chunks.
func (ix *Index) Add(ctx context.Context, documentID string, chunks []models.TextChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ctx, span := otel.Tracer("pdf-chat-backend/index").Start(ctx, "index.add")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", documentID),
		attribute.Int("index.chunks", len(chunks)),
	)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		records[i] = vectorstore.Record{
			ID:         id,
			DocumentID: documentID,
			Text:       c.Text,
			Page:       c.Page,
			Ordinal:    c.Ordinal,
			Metadata:   c.Metadata,
			Vector:     vectors[i],
		}
	}

	if err := ix.store.AddBatch(ctx, documentID, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store write failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	return nil
}

// Search returns up to k chunks of documentID closest to query, closest first.
// An unknown document yields an empty result.
func (ix *Index) Search(ctx context.Context, query, documentID string, k int) ([]models.IndexedEntry, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	ctx, span := otel.Tracer("pdf-chat-backend/index").Start(ctx, "index.search")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID), attribute.Int("index.k", k))

	start := time.Now()

	vector, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}

	matches, err := ix.store.Query(ctx, documentID, vector, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store query failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	entries := make([]models.IndexedEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, models.IndexedEntry{
			Chunk: models.TextChunk{
				ID:         m.Record.ID,
				DocumentID: m.Record.DocumentID,
				Text:       m.Record.Text,
				Page:       m.Record.Page,
				Ordinal:    m.Record.Ordinal,
				Metadata:   m.Record.Metadata,
			},
			Distance: m.Distance,
		})
	}

	ix.metrics.RecordRetrieval(ctx, time.Since(start).Seconds(), len(entries))
	span.SetAttributes(attribute.Int("index.results", len(entries)))
	return entries, nil
}

// Remove deletes every chunk of documentID.
func (ix *Index) Remove(ctx context.Context, documentID string) error {
	if err := ix.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}
	return nil
}
