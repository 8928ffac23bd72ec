// Package store keeps the session's parsed asset records in memory.
package store

import (
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/google/uuid"
)

// Batch describes one append: the records it added and where they came from.
type Batch struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Count    int       `json:"count"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Snapshot is a consistent view of the store at one version.
type Snapshot struct {
	Records []domain.AssetRecord
	Version uint64
}

// Store is an append-only record collection. Appends are atomic with respect
// to readers: a reader sees either all of a batch or none of it.
type Store struct {
	mu      sync.RWMutex
	records []domain.AssetRecord
	batches []Batch
	version uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Append adds records in order as a single batch and bumps the version.
// An empty slice adds nothing and returns a zero Batch.
func (s *Store) Append(source string, records []domain.AssetRecord) Batch {
	if len(records) == 0 {
		return Batch{}
	}
	b := Batch{
		ID:       uuid.NewString(),
		Source:   source,
		Count:    len(records),
		LoadedAt: domain.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.batches = append(s.batches, b)
	s.version++
	return b
}

// All returns a copy of every record in load order.
func (s *Store) All() []domain.AssetRecord {
	return s.Snapshot().Records
}

// Snapshot returns the records together with the version they belong to.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Records: slices.Clone(s.records),
		Version: s.version,
	}
}

// Len returns the record count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases by one on every non-empty append.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Batches returns the append history, oldest first.
func (s *Store) Batches() []Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.batches)
}
