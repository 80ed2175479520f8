// Package postgres persists the in-memory store to Postgres, one JSONB row
// per snapshot bucket.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"rentcore/internal/infra/persistence/memory"
	"rentcore/internal/infra/persistence/snapshotsql"
	"rentcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	// DefaultDSN is used when no connection string is configured.
	DefaultDSN = "postgres://localhost/rentcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store runs transactions in memory and writes changed buckets to Postgres
// after each commit.
type Store struct {
	*memory.Store
	db     *sql.DB
	writer *snapshotsql.Writer
}

// NewStore connects to dsn (DefaultDSN when empty), ensures the snapshot
// table and hydrates the in-memory state from it.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	writer := snapshotsql.New(db, snapshotsql.Postgres)
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
	return &Store{Store: mem, db: db, writer: writer}, nil
}

// RunInTransaction applies fn in memory, then writes the changed buckets if it committed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if _, err := s.writer.Persist(ctx, s.ExportState()); err != nil {
		return res, fmt.Errorf("persist postgres: %w", err)
	}
	return res, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the connection pool to tests.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the connection opener and returns a restore function.
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
