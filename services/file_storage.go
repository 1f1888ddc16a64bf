package services

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pdf-chat-backend/internal/logger"
)

var pdfMagic = []byte("%PDF")

// FileStorage keeps uploaded PDFs under one directory as <document id>.pdf.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// Path returns where the PDF of documentID is stored.
func (fs *FileStorage) Path(documentID string) string {
	return filepath.Join(fs.dir, documentID+".pdf")
}

// Save writes content through a temp file and renames it into place.
func (fs *FileStorage) Save(documentID string, content []byte) (string, error) {
	finalPath := fs.Path(documentID)

	tmp, err := os.CreateTemp(fs.dir, documentID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move file to final location: %w", err)
	}
	return finalPath, nil
}

func (fs *FileStorage) Read(path string) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return content, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (fs *FileStorage) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to cleanup file", "path", path, "error", err)
	}
}

// isPDF reports whether content starts with the PDF magic bytes.
func isPDF(content []byte) bool {
	return bytes.HasPrefix(content, pdfMagic)
}
