package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaydb/collections/internal/platform/sqlitedb"
	"github.com/relaydb/collections/internal/store"
)

func newTestHandle(t *testing.T) *store.Handle {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, ":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewHandle(db)
}
