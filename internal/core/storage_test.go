package core

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcore/internal/infra/persistence/badger"
	"rentcore/internal/infra/persistence/memory"
	"rentcore/internal/infra/persistence/postgres"
	pgtestutil "rentcore/internal/infra/persistence/postgres/testutil"
	"rentcore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	mem, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, mem)

	lite, err := OpenPersistentStore(ctx, StorageConfig{SQLitePath: filepath.Join(dir, "rent.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })
	assert.IsType(t, &sqlite.Store{}, lite, "sqlite is the default driver")

	kv, err := OpenPersistentStore(ctx, StorageConfig{Driver: "BADGER", BadgerInMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	assert.IsType(t, &badger.Store{}, kv)

	_, err = OpenPersistentStore(ctx, StorageConfig{Driver: "floppy"}, nil)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestOpenPersistentStorePostgres(t *testing.T) {
	db, _ := pgtestutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := OpenPersistentStore(context.Background(), StorageConfig{Driver: StoragePostgres, PostgresDSN: "postgres://stub"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &postgres.Store{}, store)
}

func TestSQLiteServiceSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := StorageConfig{Driver: StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "rent.db")}

	clock := WithClock(ClockFunc(func() time.Time { return date(2024, time.June, 1) }))

	store, err := OpenPersistentStore(ctx, cfg, nil)
	require.NoError(t, err)
	svc := NewService(store, clock)
	owner, _, err := svc.AddOwner(ctx, Owner{FullName: "Durable"})
	require.NoError(t, err)
	tenant, _, err := svc.AddTenant(ctx, Tenant{FullName: "Stays", DocumentID: "D-1"})
	require.NoError(t, err)
	property, _, err := svc.AddProperty(ctx, Property{Title: "Brick House", SizeM2: 90, Rooms: 3, RentAmount: 1500})
	require.NoError(t, err)
	_, _, err = svc.AddContract(ctx, contract2024(property.ID, tenant.ID))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenPersistentStore(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	svc = NewService(reopened, clock)

	dash, err := svc.OwnerDashboard(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Properties)
	assert.Equal(t, 1, dash.Contracts)

	// invariants are still enforced against the reloaded state
	_, _, err = svc.AddContract(ctx, contract2024(property.ID, tenant.ID))
	assert.Error(t, err)
}
