// Package repository persists document metadata.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// StatusUpdate carries the fields written when ingestion changes state.
type StatusUpdate struct {
	Status       string
	ErrorMessage string
	Pages        int
	ChunkCount   int
	Checksum     string
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	// List returns every document, newest first.
	List(ctx context.Context) ([]models.Document, error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
	Delete(ctx context.Context, id string) error
}

type MongoDocumentRepository struct {
	collection *mongo.Collection
}

var _ DocumentRepository = (*MongoDocumentRepository)(nil)

func NewMongoDocumentRepository(db *mongo.Database) *MongoDocumentRepository {
	return &MongoDocumentRepository{collection: db.Collection(config.DocumentsCollection)}
}

func (r *MongoDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *MongoDocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return &doc, nil
}

func (r *MongoDocumentRepository) List(ctx context.Context) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

func (r *MongoDocumentRepository) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	now := time.Now()
	set := bson.M{
		"status":        update.Status,
		"error_message": update.ErrorMessage,
		"updated_at":    now,
	}
	if update.Status == models.StatusReady || update.Status == models.StatusFailed {
		set["processed_at"] = now
	}
	if update.Status == models.StatusReady {
		set["pages"] = update.Pages
		set["chunk_count"] = update.ChunkCount
	}
	if update.Checksum != "" {
		set["checksum"] = update.Checksum
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *MongoDocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// MemoryDocumentRepository keeps documents in process. Used when no MongoDB is configured.
type MemoryDocumentRepository struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

var _ DocumentRepository = (*MemoryDocumentRepository)(nil)

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{docs: make(map[string]models.Document)}
}

func (r *MemoryDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.docs[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *MemoryDocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (r *MemoryDocumentRepository) List(ctx context.Context) ([]models.Document, error) {
	r.mu.RLock()
	docs := make([]models.Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (r *MemoryDocumentRepository) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}

	now := time.Now()
	doc.Status = update.Status
	doc.ErrorMessage = update.ErrorMessage
	doc.UpdatedAt = now
	if update.Status == models.StatusReady || update.Status == models.StatusFailed {
		doc.ProcessedAt = &now
	}
	if update.Status == models.StatusReady {
		doc.Pages = update.Pages
		doc.ChunkCount = update.ChunkCount
	}
	if update.Checksum != "" {
		doc.Checksum = update.Checksum
	}
	r.docs[id] = doc
	return nil
}

func (r *MemoryDocumentRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}
