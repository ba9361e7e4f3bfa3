// Package memory provides the in-memory dataset store backing the sqlite
// and postgres stores and used directly in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"scancore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// Store keeps encoded dataset snapshots in process memory, keyed by dataset
// name. Snapshots round-trip through the schema upgrade chain on load, so a
// dataset read back behaves exactly like one loaded from disk.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewStore returns an empty in-memory dataset store.
func NewStore() *Store {
	return &Store{snapshots: make(map[string][]byte)}
}

// SaveDataset stores an encoded snapshot of the dataset under its name.
func (s *Store) SaveDataset(_ context.Context, d *domain.Dataset) error {
	raw, err := domain.EncodeSnapshot(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snapshots[d.Name] = raw
	s.mu.Unlock()
	return nil
}

// LoadDataset decodes the named snapshot, upgrading and validating it.
func (s *Store) LoadDataset(_ context.Context, name string) (*domain.Dataset, bool, error) {
	s.mu.RLock()
	raw, ok := s.snapshots[name]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	d, err := domain.DecodeSnapshot(raw)
	if err != nil {
		return nil, true, err
	}
	return d, true, nil
}

// ListDatasets returns stored dataset names in lexical order.
func (s *Store) ListDatasets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteDataset removes the named snapshot, reporting whether it existed.
func (s *Store) DeleteDataset(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.snapshots[name]
	delete(s.snapshots, name)
	return ok, nil
}

// Close releases nothing for the memory store.
func (s *Store) Close() error { return nil }

// ExportState returns a copy of every stored snapshot, keyed by name. Used
// by the snapshotting stores to persist after each save.
func (s *Store) ExportState() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(s.snapshots))
	for k, v := range s.snapshots {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// ImportState replaces the store's content with raw snapshots, typically
// hydrated from a database on startup.
func (s *Store) ImportState(snapshots map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[string][]byte, len(snapshots))
	for k, v := range snapshots {
		s.snapshots[k] = append([]byte(nil), v...)
	}
}
