package core

import (
	"fmt"
	"os"

	"crowdcore/internal/infra/persistence/memory"
	"crowdcore/internal/infra/persistence/postgres"
	"crowdcore/internal/infra/persistence/sqlite"
	"crowdcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// OpenPersistentStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	CROWDCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CROWDCORE_SQLITE_PATH: path to sqlite file (default ./crowdcore.db)
//	CROWDCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(engine *RulesEngine) (PersistentStore, error) {
	driver := os.Getenv("CROWDCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("CROWDCORE_SQLITE_PATH"), engine)
	case StoragePostgres:
		return postgres.NewStore(os.Getenv("CROWDCORE_POSTGRES_DSN"), engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
