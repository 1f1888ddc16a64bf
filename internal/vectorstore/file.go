package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/utils"
)

// SnapshotFile is the name of the persisted index inside the store directory.
const SnapshotFile = "index.json.br"

type storedBatch struct {
	Seq     int64    `json:"seq"`
	Records []Record `json:"records"`
}

type snapshot struct {
	NextSeq   int64                    `json:"next_seq"`
	Documents map[string][]storedBatch `json:"documents"`
}

// with returns a copy of s where documentID maps to batches. Other
// documents share their slices with s, which is never mutated after publish.
func (s *snapshot) with(documentID string, batches []storedBatch) *snapshot {
	next := &snapshot{NextSeq: s.NextSeq, Documents: make(map[string][]storedBatch, len(s.Documents)+1)}
	for id, b := range s.Documents {
		next.Documents[id] = b
	}
	if batches == nil {
		delete(next.Documents, documentID)
	} else {
		next.Documents[documentID] = batches
	}
	return next
}

// FileStore keeps the index in memory and, when it has a directory, mirrors
// every committed change to a brotli-compressed JSON snapshot before returning.
// Writers are serialized; readers see the last published snapshot and never
// wait for disk I/O.
type FileStore struct {
	path    string
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *snapshot
}

var _ Store = (*FileStore)(nil)

// NewMemoryStore returns a FileStore without persistence.
func NewMemoryStore() *FileStore {
	return &FileStore{state: &snapshot{Documents: map[string][]storedBatch{}}}
}

// NewFileStore opens (or creates) the snapshot under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector store directory: %w", err)
	}

	s := NewMemoryStore()
	s.path = filepath.Join(dir, SnapshotFile)

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	data, err := utils.DecompressSnapshot(raw)
	if err != nil {
		return nil, err
	}
	var loaded snapshot
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if loaded.Documents == nil {
		loaded.Documents = map[string][]storedBatch{}
	}
	s.state = &loaded

	logger.Info("vector store loaded", "path", s.path, "documents", len(loaded.Documents))
	return s, nil
}

func (s *FileStore) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *FileStore) publish(next *snapshot) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

func (s *FileStore) AddBatch(ctx context.Context, documentID string, records []Record) error {
	if documentID == "" {
		return fmt.Errorf("document id is required")
	}
	if len(records) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	batch := storedBatch{Records: make([]Record, len(records))}
	for i, r := range records {
		r.DocumentID = documentID
		batch.Records[i] = r
	}

	cur := s.current()
	batch.Seq = cur.NextSeq

	existing := cur.Documents[documentID]
	batches := make([]storedBatch, len(existing), len(existing)+1)
	copy(batches, existing)
	batches = append(batches, batch)

	next := cur.with(documentID, batches)
	next.NextSeq = cur.NextSeq + 1

	if err := s.persist(next); err != nil {
		return err
	}
	s.publish(next)
	return nil
}

func (s *FileStore) Query(ctx context.Context, documentID string, vector []float32, k int) ([]Match, error) {
	batches := s.current().Documents[documentID]
	if len(batches) == 0 {
		return []Match{}, nil
	}

	var cands []candidate
	for _, b := range batches {
		for i, r := range b.Records {
			cands = append(cands, candidate{record: r, batchSeq: b.Seq, position: i})
		}
	}
	return rank(cands, vector, k)
}

func (s *FileStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current()
	if _, ok := cur.Documents[documentID]; !ok {
		return nil
	}

	next := cur.with(documentID, nil)
	if err := s.persist(next); err != nil {
		return err
	}
	s.publish(next)
	return nil
}

// Count returns how many records documentID has.
func (s *FileStore) Count(documentID string) int {
	n := 0
	for _, b := range s.current().Documents[documentID] {
		n += len(b.Records)
	}
	return n
}

func (s *FileStore) Close(ctx context.Context) error { return nil }

// persist writes next to a temp file, syncs it and renames it over the snapshot.
func (s *FileStore) persist(next *snapshot) error {
	if s.path == "" {
		return nil
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	compressed, err := utils.CompressSnapshot(data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), SnapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	logger.Debug("vector store snapshot written",
		"path", s.path,
		"bytes", len(compressed),
		"saved_pct", utils.CompressionRatio(len(data), len(compressed)))
	return nil
}
