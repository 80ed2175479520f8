// Package snapshotsql stores memory store snapshots in a SQL table, one JSON
// document per bucket. Buckets whose document is unchanged since the last
// successful write are skipped.
package snapshotsql

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"rentcore/internal/infra/persistence/memory"
)

// Table is the name of the snapshot table.
const Table = "rentcore_state"

// Dialect captures the SQL differences between supported engines.
type Dialect struct {
	Name        string
	PayloadType string
	positional  bool
}

// Supported dialects.
var (
	SQLite   = Dialect{Name: "sqlite", PayloadType: "BLOB"}
	Postgres = Dialect{Name: "postgres", PayloadType: "JSONB", positional: true}
)

func (d Dialect) arg(n int) string {
	if d.positional {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) createTable() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		bucket TEXT PRIMARY KEY,
		payload %s NOT NULL
	)`, Table, d.PayloadType)
}

func (d Dialect) upsert() string {
	return fmt.Sprintf(`INSERT INTO %s(bucket,payload) VALUES(%s,%s) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`,
		Table, d.arg(1), d.arg(2))
}

// Writer loads and persists snapshots through db.
type Writer struct {
	db      *sql.DB
	dialect Dialect

	mu      sync.Mutex
	written map[string][]byte
}

// New returns a Writer for db. Call EnsureTable before Load or Persist.
func New(db *sql.DB, dialect Dialect) *Writer {
	return &Writer{db: db, dialect: dialect, written: make(map[string][]byte)}
}

// EnsureTable creates the snapshot table if it does not exist.
func (w *Writer) EnsureTable(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, w.dialect.createTable()); err != nil {
		return fmt.Errorf("ensure %s table: %w", w.dialect.Name, err)
	}
	return nil
}

// Load reads every known bucket. found is false when the table holds no
// known bucket. Buckets written by newer releases are ignored.
func (w *Writer) Load(ctx context.Context) (snapshot memory.Snapshot, found bool, err error) {
	rows, err := w.db.QueryContext(ctx, "SELECT bucket, payload FROM "+Table)
	if err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	w.mu.Lock()
	defer w.mu.Unlock()
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		target, err := snapshot.Bucket(bucket)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("decode %s: %w", bucket, err)
		}
		w.written[bucket] = bytes.Clone(payload)
		found = true
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, found, nil
}

// Persist writes the buckets of snapshot that changed since the last
// successful call, in one SQL transaction, and reports how many it wrote.
func (w *Writer) Persist(ctx context.Context, snapshot memory.Snapshot) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirty := make(map[string][]byte)
	for _, bucket := range memory.BucketNames {
		target, err := snapshot.Bucket(bucket)
		if err != nil {
			return 0, err
		}
		data, err := json.Marshal(target)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", bucket, err)
		}
		if prev, ok := w.written[bucket]; ok && bytes.Equal(prev, data) {
			continue
		}
		dirty[bucket] = data
	}
	if len(dirty) == 0 {
		return 0, nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	stmt := w.dialect.upsert()
	for _, bucket := range memory.BucketNames {
		data, ok := dirty[bucket]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt, bucket, data); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	for bucket, data := range dirty {
		w.written[bucket] = data
	}
	return len(dirty), nil
}
