package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

// FileStore keeps baselines in a single pretty-printed JSON file keyed by
// "BASE_QUOTE". The format matches the original data/exchange_history.json so
// it stays hand-inspectable and an existing file can be carried over.
type FileStore struct {
	path string
}

// NewFileStore builds a baseline store backed by path. A missing or empty
// file means "no history yet", never an error.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the stored baseline for pair, if any.
func (s *FileStore) Get(ctx context.Context, pair monitor.Pair) (monitor.HistoryEntry, bool, error) {
	history, err := s.load()
	if err != nil {
		return monitor.HistoryEntry{}, false, err
	}
	entry, ok := history[pair.Key()]
	return entry, ok, nil
}

// Put overwrites the single entry for pair. The whole snapshot is rewritten
// to a temp file in the same directory and swapped in with os.Rename, so a
// crash mid-write cannot leave a half-written file behind.
func (s *FileStore) Put(ctx context.Context, pair monitor.Pair, entry monitor.HistoryEntry) error {
	history, err := s.load()
	if err != nil {
		return err
	}
	history[pair.Key()] = entry
	return s.save(history)
}

// All returns every stored baseline keyed by pair.
func (s *FileStore) All(ctx context.Context) (map[string]monitor.HistoryEntry, error) {
	return s.load()
}

func (s *FileStore) load() (map[string]monitor.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]monitor.HistoryEntry{}, nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if len(data) == 0 {
		return map[string]monitor.HistoryEntry{}, nil
	}

	history := map[string]monitor.HistoryEntry{}
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse history file %s: %w", s.path, err)
	}
	return history, nil
}

func (s *FileStore) save(history map[string]monitor.HistoryEntry) error {
	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp history file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

var _ BaselineStore = (*FileStore)(nil)
