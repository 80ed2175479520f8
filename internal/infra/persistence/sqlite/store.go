// Package sqlite persists the in-memory store to a local SQLite file, one
// JSON document per snapshot bucket.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"rentcore/internal/infra/persistence/memory"
	"rentcore/internal/infra/persistence/snapshotsql"
	"rentcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "rentcore.db"

// Store runs transactions in memory and writes changed buckets to SQLite
// after each commit.
type Store struct {
	*memory.Store
	db     *sql.DB
	writer *snapshotsql.Writer
	path   string
}

// NewStore opens or creates the database at path and hydrates state from it.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	writer := snapshotsql.New(db, snapshotsql.SQLite)
	if err := writer.EnsureTable(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	snapshot, found, err := writer.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(engine)
	if found {
		mem.ImportState(snapshot)
	}
	return &Store{Store: mem, db: db, writer: writer, path: path}, nil
}

// RunInTransaction applies fn in memory, then writes the changed buckets if it committed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if _, err := s.writer.Persist(ctx, s.ExportState()); err != nil {
		return res, fmt.Errorf("persist sqlite: %w", err)
	}
	return res, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the database handle to tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
