package core

import (
	"fmt"
	"os"

	"scancore/internal/infra/persistence/memory"
	"scancore/internal/infra/persistence/postgres"
	"scancore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	SCANCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	SCANCORE_SQLITE_PATH: path to sqlite file (default ./scancore.db)
//	SCANCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore() (PersistentStore, error) {
	driver := os.Getenv("SCANCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("SCANCORE_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("SCANCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
