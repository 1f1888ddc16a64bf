package models

// Page is the extracted text of one PDF page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// TextChunk is a bounded span of one page's text, the unit of retrieval.
type TextChunk struct {
	ID         string            `bson:"chunk_id" json:"chunk_id"`
	DocumentID string            `bson:"document_id" json:"document_id"`
	Text       string            `bson:"text" json:"text"`
	Page       int               `bson:"page" json:"page"`
	Ordinal    int               `bson:"ordinal" json:"ordinal"`
	Metadata   map[string]string `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// IndexedEntry is a chunk returned by a scoped similarity search.
// Distance is only comparable with other entries of the same query; lower is closer.
type IndexedEntry struct {
	Chunk    TextChunk `json:"chunk"`
	Distance float64   `json:"distance"`
}
