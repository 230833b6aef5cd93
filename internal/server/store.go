package server

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/treescope/pkg/errors"
	"github.com/matzehuels/treescope/pkg/snapshot"
)

// ScanRecord is one stored scan: identity, provenance, and the full tree
// snapshot. The wire struct serves both the Mongo store (bson) and the
// JSON API (json).
type ScanRecord struct {
	ID        string           `json:"id" bson:"_id"`
	Root      string           `json:"root" bson:"root"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	Files     int              `json:"files" bson:"files"`
	Dirs      int              `json:"dirs" bson:"dirs"`
	Bytes     int64            `json:"bytes" bson:"bytes"`
	Tree      snapshot.TreeDoc `json:"-" bson:"tree"`
}

// ScanStore persists scan records.
// Implementations must be safe for concurrent use.
type ScanStore interface {
	// Put stores or replaces a record.
	Put(ctx context.Context, rec *ScanRecord) error

	// Get retrieves a record by ID. A missing record returns a
	// SCAN_NOT_FOUND error.
	Get(ctx context.Context, id string) (*ScanRecord, error)

	// List returns all records, newest first, without tree payloads.
	List(ctx context.Context) ([]*ScanRecord, error)

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases store resources.
	Close(ctx context.Context) error
}

// MemoryStore is the in-process store used in standalone mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ScanRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*ScanRecord)}
}

// Put stores or replaces a record.
func (s *MemoryStore) Put(ctx context.Context, rec *ScanRecord) error {
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

// Get retrieves a record by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ScanRecord, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeScanNotFound, "scan %s not found", id)
	}
	return rec, nil
}

// List returns all records, newest first. The tree payload is included
// since it is already in memory; handlers strip it from summaries.
func (s *MemoryStore) List(ctx context.Context) ([]*ScanRecord, error) {
	s.mu.RLock()
	out := make([]*ScanRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

// Close does nothing for the memory store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Ensure MemoryStore implements ScanStore.
var _ ScanStore = (*MemoryStore)(nil)
