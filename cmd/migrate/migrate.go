package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/utils"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  create-indexes  - Create indexes for documents, pdf_chunks and index_batches")
		fmt.Println("  verify          - Print document, chunk and batch counts")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}

	// ConnectMongoDB also creates the indexes
	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	ctx, cancel := utils.WithLongTimeout(context.Background())
	defer cancel()
	db := client.Database(cfg.DBName)

	switch command {
	case "create-indexes":
		if err := config.CreateIndexes(ctx, db); err != nil {
			log.Fatalf("Creating indexes failed: %v", err)
		}
		fmt.Println("Indexes created successfully!")

	case "verify":
		for _, name := range []string{config.DocumentsCollection, config.ChunksCollection, config.IndexBatchesCollection} {
			count, err := db.Collection(name).EstimatedDocumentCount(ctx)
			if err != nil {
				log.Fatalf("Failed to count %s: %v", name, err)
			}
			fmt.Printf("  %s: %d documents\n", name, count)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
