package models

import "time"

// Document is an uploaded PDF and its ingestion state.
type Document struct {
	ID           string     `bson:"_id" json:"id"`
	Name         string     `bson:"name" json:"name"`
	FilePath     string     `bson:"file_path" json:"-"`
	Checksum     string     `bson:"checksum" json:"checksum,omitempty"`
	Size         int64      `bson:"size" json:"size"`
	Pages        int        `bson:"pages" json:"pages"`
	ChunkCount   int        `bson:"chunk_count" json:"chunk_count"`
	Status       string     `bson:"status" json:"status"` // pending, processing, ready, failed
	ErrorMessage string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Document processing status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// UploadResponse is returned by the synchronous upload endpoint.
type UploadResponse struct {
	DocumentID string `json:"documentId"`
	Message    string `json:"message"`
	TaskID     string `json:"task_id,omitempty"`
	Status     string `json:"status,omitempty"`
}

// DocumentSummary is the list view of a Document.
type DocumentSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	Status     string    `json:"status"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunk_count"`
}

// Summary converts a Document to its list view.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:         d.ID,
		Name:       d.Name,
		CreatedAt:  d.CreatedAt,
		Status:     d.Status,
		Pages:      d.Pages,
		ChunkCount: d.ChunkCount,
	}
}
