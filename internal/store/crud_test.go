package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydb/collections/internal/filter"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/internal/store"
)

func TestCollection_BasicCRUD(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "users")
	require.NoError(t, err)

	doc := map[string]any{"name": "Alice", "email": "a@x", "age": float64(30), "active": true}
	require.NoError(t, c.Put(ctx, "u1", doc))

	got, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, doc, got)

	has, err := c.Has(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, has)

	deleted, err := c.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollection_PutRejectsEmptyID(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "users")
	require.NoError(t, err)

	err = c.Put(ctx, "", map[string]any{"a": float64(1)})
	assert.Error(t, err)
}

func TestCollection_PutOverwriteReplacesDocument(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "users")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "u1", map[string]any{"v": float64(1)}))
	require.NoError(t, c.Put(ctx, "u1", map[string]any{"v": float64(2)}))

	got, ok, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(2), got["v"])
}

func TestCollection_NumericComparisonFilter(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "products")
	require.NoError(t, err)

	prices := map[string]float64{"p1": 999, "p2": 599, "p3": 149, "p4": 299}
	for id, price := range prices {
		require.NoError(t, c.Put(ctx, id, map[string]any{"price": price}))
	}

	f, err := filter.Parse(map[string]any{"price": map[string]any{"$gt": float64(500)}})
	require.NoError(t, err)

	docs, err := c.Find(ctx, f, validate.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	count, err := c.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCollection_EmptyInNin(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "items")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "a", map[string]any{"status": "open"}))
	require.NoError(t, c.Put(ctx, "b", map[string]any{"status": "closed"}))
	require.NoError(t, c.Put(ctx, "d", map[string]any{"status": "pending"}))

	inEmpty, err := filter.Parse(map[string]any{"status": map[string]any{"$in": []any{}}})
	require.NoError(t, err)
	docs, err := c.Find(ctx, inEmpty, validate.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	ninEmpty, err := filter.Parse(map[string]any{"status": map[string]any{"$nin": []any{}}})
	require.NoError(t, err)
	docs, err = c.Find(ctx, ninEmpty, validate.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestCollection_SortAndPaginate(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "products")
	require.NoError(t, err)

	seed := []struct {
		id    string
		name  string
		price float64
	}{
		{"p1", "Alpha", 100}, {"p2", "Beta", 200}, {"p3", "Gamma", 300},
		{"p4", "Delta", 400}, {"p5", "Epsilon", 500},
	}
	for _, s := range seed {
		require.NoError(t, c.Put(ctx, s.id, map[string]any{"name": s.name, "price": s.price}))
	}

	limit, offset := 2, 2
	opts := validate.QueryOptions{Sort: "name", Limit: &limit, Offset: &offset}
	docs, err := c.Find(ctx, nil, opts)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Delta", docs[0]["name"])
	assert.Equal(t, "Epsilon", docs[1]["name"])
}

func TestCollection_CollectionIsolation(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	a, err := store.NewCollection(ctx, h, "alpha")
	require.NoError(t, err)
	b, err := store.NewCollection(ctx, h, "beta")
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, "x", map[string]any{"v": float64(1)}))

	_, ok, err := b.Get(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollection_SQLInjectionAttemptInCollectionName(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)

	evil := "'; DROP TABLE _collections; --"
	c, err := store.NewCollection(ctx, h, evil)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "x", map[string]any{"v": float64(1)}))
	got, ok, err := c.Get(ctx, "x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1), got["v"])

	other, err := store.NewCollection(ctx, h, "normal")
	require.NoError(t, err)
	_, ok, err = other.Get(ctx, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCollection_GetManyPreservesOrderAndAbsence(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "items")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "a", map[string]any{"v": float64(1)}))
	require.NoError(t, c.Put(ctx, "b", map[string]any{"v": float64(2)}))

	docs, err := c.GetMany(ctx, []string{"a", "missing", "b"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, float64(1), docs[0]["v"])
	assert.Nil(t, docs[1])
	assert.Equal(t, float64(2), docs[2]["v"])
}

func TestCollection_Keys_SortedAscending(t *testing.T) {
	ctx := context.Background()
	h := newTestHandle(t)
	c, err := store.NewCollection(ctx, h, "items")
	require.NoError(t, err)

	for _, id := range []string{"zebra", "alpha", "mango"} {
		require.NoError(t, c.Put(ctx, id, map[string]any{}))
	}

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mango", "zebra"}, keys)
}
