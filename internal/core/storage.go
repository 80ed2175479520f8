package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rentcore/internal/infra/persistence/badger"
	"rentcore/internal/infra/persistence/memory"
	"rentcore/internal/infra/persistence/postgres"
	"rentcore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded key-value store
)

// StorageConfig selects and parameterises the persistence backend.
// An empty Driver means sqlite.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	BadgerPath  string
	// BadgerInMemory keeps the badger backend off disk.
	BadgerInMemory bool
	Logger         *slog.Logger
}

// OpenPersistentStore opens the backend named by cfg.Driver and hydrates it from
// any previously saved snapshot.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	driver := StorageDriver(strings.ToLower(string(cfg.Driver)))
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN, engine)
	case StorageBadger:
		bc := badger.DefaultConfig(cfg.BadgerPath)
		if cfg.BadgerInMemory {
			bc = badger.InMemoryConfig()
		}
		bc.Logger = cfg.Logger
		return badger.NewStore(bc, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
