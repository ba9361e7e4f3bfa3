// Package postgres provides a Postgres-backed dataset store mirroring the
// in-memory semantics, snapshotting after every save.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"scancore/internal/infra/persistence/memory"
	"scancore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/scancore?sslmode=disable"
)

// sqlOpen is swappable for tests that stub the driver.
var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists dataset snapshots to Postgres while reusing the in-memory
// implementation for reads.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN), ensures the snapshot table exists, and hydrates the
// in-memory store from existing rows.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure datasets table: %w", err)
	}
	snapshots, err := loadSnapshots(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snapshots)
	return &Store{Store: mem, db: db}, nil
}

func loadSnapshots(ctx context.Context, db *sql.DB) (map[string][]byte, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, payload FROM datasets`)
	if err != nil {
		return nil, fmt.Errorf("select datasets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshots := make(map[string][]byte)
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		snapshots[name] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return snapshots, nil
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
	if _, err := s.db.ExecContext(ctx, `INSERT INTO datasets(name,payload) VALUES($1,$2) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload`, d.Name, raw); err != nil {
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
	if _, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE name=$1`, name); err != nil {
		return existed, fmt.Errorf("delete dataset %s: %w", name, err)
	}
	return existed, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
