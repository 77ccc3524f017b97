package storage

import (
	"context"
	"sync"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

// MemoryStore is a map-backed BaselineStore for tests and simulation runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]monitor.HistoryEntry
}

// NewMemoryStore builds an empty in-memory baseline store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]monitor.HistoryEntry{}}
}

// Get returns the stored baseline for pair, if any.
func (s *MemoryStore) Get(ctx context.Context, pair monitor.Pair) (monitor.HistoryEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[pair.Key()]
	return entry, ok, nil
}

// Put overwrites the entry for pair.
func (s *MemoryStore) Put(ctx context.Context, pair monitor.Pair, entry monitor.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[pair.Key()] = entry
	return nil
}

// All returns a copy of every stored baseline.
func (s *MemoryStore) All(ctx context.Context) (map[string]monitor.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]monitor.HistoryEntry, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out, nil
}

var _ BaselineStore = (*MemoryStore)(nil)
