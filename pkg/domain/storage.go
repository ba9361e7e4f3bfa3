package domain

import "context"

// PersistentStore keeps dataset snapshots between sessions. Implementations
// must run the schema upgrade chain and Validate before returning a loaded
// dataset (DecodeSnapshot does both).
type PersistentStore interface {
	SaveDataset(ctx context.Context, d *Dataset) error
	LoadDataset(ctx context.Context, name string) (*Dataset, bool, error)
	ListDatasets(ctx context.Context) ([]string, error)
	DeleteDataset(ctx context.Context, name string) (bool, error)
	Close() error
}
