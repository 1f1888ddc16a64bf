package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson" // Use bson for index keys
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the Mongo-backed stores.
const (
	DocumentsCollection    = "documents"
	ChunksCollection       = "pdf_chunks"
	IndexBatchesCollection = "index_batches"
	CountersCollection     = "counters"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = CreateIndexes(ctx, client.Database(cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

// CreateIndexes makes sure every collection used by the service has its indexes.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	// Documents collection indexes
	documentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "checksum", Value: 1}}},
	}
	if _, err := db.Collection(DocumentsCollection).Indexes().CreateMany(ctx, documentIndexes); err != nil {
		return err
	}

	// Chunk vectors are always read scoped to one document and filtered by committed batch
	chunkIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "batch_id", Value: 1}}},
		{Keys: bson.D{{Key: "batch_id", Value: 1}}},
	}
	if _, err := db.Collection(ChunksCollection).Indexes().CreateMany(ctx, chunkIndexes); err != nil {
		return err
	}

	batchIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "seq", Value: 1}}},
	}
	if _, err := db.Collection(IndexBatchesCollection).Indexes().CreateMany(ctx, batchIndexes); err != nil {
		return err
	}

	return nil
}
