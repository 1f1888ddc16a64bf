package services

import "errors"

// Error kinds surfaced by the chat and document services. Callers match with errors.Is.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrRetrievalUnavailable  = errors.New("retrieval unavailable")
	ErrEmbeddingUnavailable  = errors.New("embedding unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
)
