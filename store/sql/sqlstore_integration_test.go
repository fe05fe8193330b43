package sqlstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-wallet/core"
	sqlstore "github.com/goliatone/go-wallet/store/sql"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"wallet_snapshots",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "wallet_snapshots" {
		t.Fatalf("expected wallet_snapshots table, got %q", tableName)
	}
}

func TestSnapshotStore_SaveLoadOverwriteDelete(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SnapshotStore()
	if store == nil {
		t.Fatalf("expected snapshot store from factory")
	}

	if _, found, err := store.Load(ctx, core.DefaultSnapshotSlot); err != nil || found {
		t.Fatalf("expected empty slot, found=%t err=%v", found, err)
	}

	first := core.PersistedSnapshot{PrincipalID: "2vxsx-fae", LastKnownBalance: 100, UpdatedAt: time.Now().UTC()}
	if err := store.Save(ctx, core.DefaultSnapshotSlot, first); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	loaded, found, err := store.Load(ctx, core.DefaultSnapshotSlot)
	if err != nil || !found {
		t.Fatalf("load snapshot: found=%t err=%v", found, err)
	}
	if loaded.PrincipalID != "2vxsx-fae" || loaded.LastKnownBalance != 100 {
		t.Fatalf("unexpected snapshot %+v", loaded)
	}

	if err := store.Save(ctx, core.DefaultSnapshotSlot, core.PersistedSnapshot{PrincipalID: "2vxsx-fae", LastKnownBalance: 110}); err != nil {
		t.Fatalf("overwrite snapshot: %v", err)
	}
	loaded, _, err = store.Load(ctx, core.DefaultSnapshotSlot)
	if err != nil {
		t.Fatalf("reload snapshot: %v", err)
	}
	if loaded.LastKnownBalance != 110 {
		t.Fatalf("expected overwritten balance 110, got %d", loaded.LastKnownBalance)
	}

	var rows int
	if err := client.DB().NewRaw("SELECT COUNT(*) FROM wallet_snapshots").Scan(ctx, &rows); err != nil {
		t.Fatalf("count snapshot rows: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected a single row per slot, got %d", rows)
	}

	if err := store.Delete(ctx, core.DefaultSnapshotSlot); err != nil {
		t.Fatalf("delete snapshot: %v", err)
	}
	if _, found, err := store.Load(ctx, core.DefaultSnapshotSlot); err != nil || found {
		t.Fatalf("expected deleted slot, found=%t err=%v", found, err)
	}
}

func TestSnapshotStore_KeepsFullUint64Balance(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewSnapshotStore(client.DB())
	if err != nil {
		t.Fatalf("new snapshot store: %v", err)
	}
	for _, balance := range []uint64{1 << 63, ^uint64(0)} {
		if err := store.Save(ctx, core.DefaultSnapshotSlot, core.PersistedSnapshot{PrincipalID: "2vxsx-fae", LastKnownBalance: balance}); err != nil {
			t.Fatalf("save balance %d: %v", balance, err)
		}
		loaded, ok, err := store.Load(ctx, core.DefaultSnapshotSlot)
		if err != nil || !ok {
			t.Fatalf("load balance %d: ok=%v err=%v", balance, ok, err)
		}
		if loaded.LastKnownBalance != balance {
			t.Fatalf("expected balance %d, got %d", balance, loaded.LastKnownBalance)
		}
	}

	sessions, err := core.NewSessionStore(core.SessionStoreConfig{Store: store})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	if _, err := sessions.Activate(ctx, "2vxsx-fae"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := sessions.RecordBalance(ctx, ^uint64(0)-1); err != nil {
		t.Fatalf("record balance above int64 range: %v", err)
	}
	loaded, _, err := store.Load(ctx, core.DefaultSnapshotSlot)
	if err != nil || loaded.LastKnownBalance != ^uint64(0)-1 {
		t.Fatalf("expected recorded balance persisted, got %d (%v)", loaded.LastKnownBalance, err)
	}
}

func TestSnapshotStore_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewSnapshotStore(client.DB())
	if err != nil {
		t.Fatalf("new snapshot store: %v", err)
	}
	if err := store.Save(ctx, " ", core.PersistedSnapshot{PrincipalID: "2vxsx-fae"}); err == nil {
		t.Fatalf("expected error for blank slot")
	}
	if err := store.Save(ctx, core.DefaultSnapshotSlot, core.PersistedSnapshot{}); err == nil {
		t.Fatalf("expected error for missing principal")
	}
	if _, err := sqlstore.NewSnapshotStore(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestSnapshotStore_SessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB())
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	sessions, err := core.NewSessionStore(core.SessionStoreConfig{Store: factory.SnapshotStore()})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	if _, err := sessions.Activate(ctx, "2vxsx-fae"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := sessions.RecordBalance(ctx, 42); err != nil {
		t.Fatalf("record balance: %v", err)
	}

	loaded, found, err := factory.SnapshotStore().Load(ctx, core.DefaultSnapshotSlot)
	if err != nil || !found {
		t.Fatalf("load persisted session: found=%t err=%v", found, err)
	}
	if loaded.LastKnownBalance != 42 {
		t.Fatalf("expected persisted balance 42, got %d", loaded.LastKnownBalance)
	}

	sessions.Clear(ctx)
	if _, found, _ := factory.SnapshotStore().Load(ctx, core.DefaultSnapshotSlot); found {
		t.Fatalf("expected clear to erase the persisted snapshot")
	}
}

func TestRepositoryFactory_WithCacheServiceWrapsStore(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithCacheService(cacheService))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SnapshotStore()
	if _, ok := store.(*sqlstore.CachedSnapshotStore); !ok {
		t.Fatalf("expected cached snapshot store, got %T", store)
	}

	if err := store.Save(ctx, core.DefaultSnapshotSlot, core.PersistedSnapshot{PrincipalID: "aaaaa-aa", LastKnownBalance: 7}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, found, err := store.Load(ctx, core.DefaultSnapshotSlot)
	if err != nil || !found || loaded.LastKnownBalance != 7 {
		t.Fatalf("unexpected cached load %+v found=%t err=%v", loaded, found, err)
	}
}

func TestOpen_RejectsUnsupportedDriver(t *testing.T) {
	if _, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.Open(context.Background(), sqlstore.Config{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:wallet-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver:      sqlstore.DriverSQLite,
		DSN:         dsn,
		PingTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}
	return client, func() {
		_ = client.Close()
	}
}
