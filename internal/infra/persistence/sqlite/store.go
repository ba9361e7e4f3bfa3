// Package sqlite provides a snapshotting SQLite-backed dataset store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"scancore/internal/infra/persistence/memory"
	"scancore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists dataset snapshots to a single SQLite table as JSON blobs,
// reusing the in-memory store for reads. Every successful save rewrites the
// dataset's row.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a SQLite-backed dataset store at path, hydrating the
// in-memory state from any existing rows.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "scancore.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create datasets table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT name, payload FROM datasets`)
	if err != nil {
		return fmt.Errorf("select datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshots := make(map[string][]byte)
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		snapshots[name] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate datasets: %w", err)
	}
	s.ImportState(snapshots)
	return nil
}

// SaveDataset stores the snapshot in memory, then upserts its row.
func (s *Store) SaveDataset(ctx context.Context, d *domain.Dataset) error {
	if err := s.Store.SaveDataset(ctx, d); err != nil {
		return err
	}
	raw, err := domain.EncodeSnapshot(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO datasets(name,payload) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload`, d.Name, raw); err != nil {
		return fmt.Errorf("upsert dataset %s: %w", d.Name, err)
	}
	return nil
}

// DeleteDataset removes the snapshot from memory and its row.
func (s *Store) DeleteDataset(ctx context.Context, name string) (bool, error) {
	existed, err := s.Store.DeleteDataset(ctx, name)
	if err != nil {
		return existed, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name=?`, name); err != nil {
		return existed, fmt.Errorf("delete dataset %s: %w", name, err)
	}
	return existed, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
