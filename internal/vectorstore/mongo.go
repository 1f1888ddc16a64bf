package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/utils"
)

const batchCounterID = "index_batches"

type chunkDoc struct {
	ID       string `bson:"_id"`
	BatchID  string `bson:"batch_id"`
	Position int    `bson:"position"`
	Record   `bson:",inline"`
}

// batchDoc marks a batch as committed. Chunks whose batch_id has no batchDoc
// are invisible to queries.
type batchDoc struct {
	ID          string    `bson:"_id"`
	DocumentID  string    `bson:"document_id"`
	Seq         int64     `bson:"seq"`
	Size        int       `bson:"size"`
	CommittedAt time.Time `bson:"committed_at"`
}

// MongoStore stores chunks in pdf_chunks and publishes each batch with a
// single insert into index_batches. Distances are computed in process.
type MongoStore struct {
	chunks   *mongo.Collection
	batches  *mongo.Collection
	counters *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

func NewMongoStore(db *mongo.Database) *MongoStore {
	journal := true
	wc := &writeconcern.WriteConcern{W: "majority", Journal: &journal}
	opts := options.Collection().SetWriteConcern(wc)

	return &MongoStore{
		chunks:   db.Collection(config.ChunksCollection, opts),
		batches:  db.Collection(config.IndexBatchesCollection, opts),
		counters: db.Collection(config.CountersCollection, opts),
	}
}

func (s *MongoStore) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": batchCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate batch sequence: %w", err)
	}
	return counter.Seq, nil
}

func (s *MongoStore) AddBatch(ctx context.Context, documentID string, records []Record) error {
	if documentID == "" {
		return fmt.Errorf("document id is required")
	}
	if len(records) == 0 {
		return nil
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}

	batchID := uuid.New().String()
	docs := make([]interface{}, len(records))
	for i, r := range records {
		r.DocumentID = documentID
		docs[i] = chunkDoc{
			ID:       uuid.New().String(),
			BatchID:  batchID,
			Position: i,
			Record:   r,
		}
	}

	if _, err := s.chunks.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		s.discardBatch(ctx, batchID)
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	commit := batchDoc{
		ID:          batchID,
		DocumentID:  documentID,
		Seq:         seq,
		Size:        len(records),
		CommittedAt: time.Now(),
	}
	if _, err := s.batches.InsertOne(ctx, commit); err != nil {
		s.discardBatch(ctx, batchID)
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	return nil
}

// discardBatch removes whatever part of a failed batch reached the database.
// It runs even when ctx was cancelled.
func (s *MongoStore) discardBatch(ctx context.Context, batchID string) {
	cleanupCtx, cancel := utils.WithTimeout(context.WithoutCancel(ctx))
	defer cancel()

	if _, err := s.batches.DeleteOne(cleanupCtx, bson.M{"_id": batchID}); err != nil {
		logger.Error("failed to remove batch marker", "batch_id", batchID, "error", err)
	}
	if _, err := s.chunks.DeleteMany(cleanupCtx, bson.M{"batch_id": batchID}); err != nil {
		logger.Error("failed to remove orphaned chunks", "batch_id", batchID, "error", err)
	}
}

func (s *MongoStore) Query(ctx context.Context, documentID string, vector []float32, k int) ([]Match, error) {
	cursor, err := s.batches.Find(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	var committed []batchDoc
	if err := cursor.All(ctx, &committed); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}
	if len(committed) == 0 {
		return []Match{}, nil
	}

	seqs := make(map[string]int64, len(committed))
	ids := make([]string, 0, len(committed))
	for _, b := range committed {
		seqs[b.ID] = b.Seq
		ids = append(ids, b.ID)
	}

	cursor, err = s.chunks.Find(ctx, bson.M{
		"document_id": documentID,
		"batch_id":    bson.M{"$in": ids},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	var stored []chunkDoc
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}

	cands := make([]candidate, 0, len(stored))
	for _, c := range stored {
		cands = append(cands, candidate{record: c.Record, batchSeq: seqs[c.BatchID], position: c.Position})
	}
	return rank(cands, vector, k)
}

func (s *MongoStore) DeleteDocument(ctx context.Context, documentID string) error {
	// Hide the batches first so a partial failure never exposes half a document.
	if _, err := s.batches.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete batches: %w", err)
	}
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error { return nil }
