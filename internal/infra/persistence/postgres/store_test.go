package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcore/internal/infra/persistence/memory"
	"rentcore/internal/infra/persistence/postgres/testutil"
	"rentcore/internal/infra/persistence/snapshotsql"
	"rentcore/pkg/domain"
)

func openWithStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	t.Cleanup(OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil }))
	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	require.NoError(t, err)
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	_, conn := openWithStub(t)
	require.NotEmpty(t, conn.Execs)
	assert.Contains(t, conn.Execs[0], "CREATE TABLE IF NOT EXISTS "+snapshotsql.Table)
	assert.Contains(t, conn.Execs[0], "JSONB")
}

func TestRunInTransactionWritesChangedBuckets(t *testing.T) {
	ctx := context.Background()
	store, conn := openWithStub(t)
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateTenant(domain.Tenant{FullName: "Bo", DocumentID: "D-1"})
		return err
	})
	require.NoError(t, err)

	require.Len(t, conn.Tables[snapshotsql.Table], len(memory.BucketNames))
	row, ok := conn.Row(snapshotsql.Table, "tenants")
	require.True(t, ok)
	var tenants map[string]domain.Tenant
	require.NoError(t, json.Unmarshal(row["payload"].([]byte), &tenants))
	assert.Len(t, tenants, 1)

	before := conn.Inserts
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateOwner(domain.Owner{FullName: "Ana"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, conn.Inserts-before, "only the owners bucket changed")
	assert.Len(t, conn.Tables[snapshotsql.Table], len(memory.BucketNames), "rows are upserted")
	assert.Equal(t, 2, conn.Committed)

	_, err = store.RunInTransaction(ctx, func(domain.Transaction) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, conn.Committed, "an empty transaction issues no SQL transaction")
}

func TestNewStoreHydratesFromSnapshot(t *testing.T) {
	db, conn := testutil.NewStubDB()
	payload, err := json.Marshal(map[string]domain.Owner{"o1": {Base: domain.Base{ID: "o1"}, FullName: "Ana"}})
	require.NoError(t, err)
	conn.Seed(snapshotsql.Table, []string{"bucket", "payload"},
		[]any{"owners", payload},
		[]any{"unknown", []byte(`{}`)},
	)
	defer OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })()

	store, err := NewStore(context.Background(), "postgres://example", nil)
	require.NoError(t, err)
	require.NoError(t, store.View(context.Background(), func(v domain.TransactionView) error {
		o, ok := v.FindOwner("o1")
		assert.True(t, ok)
		assert.Equal(t, "Ana", o.FullName)
		return nil
	}))
}

func TestNewStoreErrors(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	_, err := NewStore(context.Background(), "", nil)
	assert.ErrorContains(t, err, "ping postgres")
	restore()

	defer OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })()
	_, err = NewStore(context.Background(), "", nil)
	assert.ErrorContains(t, err, "open postgres")
}

func TestPersistFailureSurfaces(t *testing.T) {
	store, conn := openWithStub(t)
	conn.FailCommit = true
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateOwner(domain.Owner{FullName: "Ana"})
		return err
	})
	assert.ErrorContains(t, err, "persist postgres")
	assert.ErrorContains(t, err, "commit")
}
