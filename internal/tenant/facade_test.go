package tenant_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/collections/internal/filter"
	"github.com/relaydb/collections/internal/platform/sqlitedb"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/internal/store"
	"github.com/relaydb/collections/internal/tenant"
)

func newTestFacade(t *testing.T) *tenant.Facade {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	factory := tenant.NewSingleHandleShardFactory(store.NewHandle(db))
	return tenant.New(factory)
}

func TestFacade_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	doc := map[string]any{"name": "Alice"}
	require.NoError(t, f.Put(ctx, "alice", "", "users", "u1", doc))

	got, ok, err := f.Get(ctx, "alice", "", "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc, got)

	deleted, err := f.Delete(ctx, "alice", "", "users", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = f.Get(ctx, "alice", "", "users", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacade_DefaultNamespaceIsStable(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	require.NoError(t, f.Put(ctx, "alice", "", "users", "u1", map[string]any{"v": float64(1)}))

	got, ok, err := f.Get(ctx, "alice", "default", "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1), got["v"])
}

func TestFacade_IsolatesAcrossUsers(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	require.NoError(t, f.Put(ctx, "alice", "", "users", "shared-id", map[string]any{"owner": "alice"}))
	require.NoError(t, f.Put(ctx, "bob", "", "users", "shared-id", map[string]any{"owner": "bob"}))

	a, ok, err := f.Get(ctx, "alice", "", "users", "shared-id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", a["owner"])

	b, ok, err := f.Get(ctx, "bob", "", "users", "shared-id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob", b["owner"])
}

func TestFacade_IsolatesAcrossNamespaces(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	require.NoError(t, f.Put(ctx, "alice", "staging", "users", "u1", map[string]any{"env": "staging"}))

	_, ok, err := f.Get(ctx, "alice", "production", "users", "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := f.Get(ctx, "alice", "staging", "users", "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "staging", got["env"])
}

func TestFacade_ListNamespacesRecordsOnFirstPutAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	require.NoError(t, f.Put(ctx, "alice", "staging", "users", "u1", map[string]any{"v": float64(1)}))
	require.NoError(t, f.Put(ctx, "alice", "staging", "users", "u2", map[string]any{"v": float64(2)}))
	require.NoError(t, f.Put(ctx, "alice", "production", "users", "u1", map[string]any{"v": float64(3)}))

	namespaces, err := f.ListNamespaces(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"production", "staging"}, namespaces)
}

func TestFacade_ListNamespacesIsPerUser(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	require.NoError(t, f.Put(ctx, "alice", "staging", "users", "u1", map[string]any{"v": float64(1)}))
	require.NoError(t, f.Put(ctx, "bob", "default", "users", "u1", map[string]any{"v": float64(2)}))

	aliceNS, err := f.ListNamespaces(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"staging"}, aliceNS)

	bobNS, err := f.ListNamespaces(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, bobNS)
}

func TestFacade_FindAndCount(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	prices := map[string]float64{"p1": 999, "p2": 599, "p3": 149}
	for id, price := range prices {
		require.NoError(t, f.Put(ctx, "alice", "", "products", id, map[string]any{"price": price}))
	}

	flt, err := filter.Parse(map[string]any{"price": map[string]any{"$gt": float64(500)}})
	require.NoError(t, err)

	docs, err := f.Find(ctx, "alice", "", "products", flt, validate.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	count, err := f.Count(ctx, "alice", "", "products", flt)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFacade_ShardNameRecordedOnFirstWrite(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	_, ok, err := f.ShardName(ctx, "alice", "staging")
	require.NoError(t, err)
	assert.False(t, ok, "no shard has been resolved yet")

	require.NoError(t, f.Put(ctx, "alice", "staging", "users", "u1", map[string]any{"v": float64(1)}))

	name, ok, err := f.ShardName(ctx, "alice", "staging")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice/staging", name)
}

func TestFacade_List(t *testing.T) {
	ctx := context.Background()
	f := newTestFacade(t)

	require.NoError(t, f.Put(ctx, "alice", "", "items", "a", map[string]any{"v": float64(1)}))
	require.NoError(t, f.Put(ctx, "alice", "", "items", "b", map[string]any{"v": float64(2)}))

	docs, err := f.List(ctx, "alice", "", "items", validate.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
