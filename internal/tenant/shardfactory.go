package tenant

import (
	"context"

	"github.com/relaydb/collections/internal/store"
)

// ShardFactory resolves the storage handle backing a (user_id, namespace)
// pair. Returning the same handle for every pair is valid: isolation
// between pairs comes from the collection-name scoping the façade applies
// on top, not from handle identity. A factory that hands back a distinct
// handle per pair (e.g. one SQLite file per user) is equally valid.
type ShardFactory interface {
	ShardFor(ctx context.Context, userID, namespace string) (*store.Handle, error)
}

// SingleHandleShardFactory is the default [ShardFactory]: every (user_id,
// namespace) pair is served by the one handle it was constructed with,
// matching the collections engine's single-connection design.
type SingleHandleShardFactory struct {
	handle *store.Handle
}

// NewSingleHandleShardFactory returns a factory that always resolves to h.
func NewSingleHandleShardFactory(h *store.Handle) *SingleHandleShardFactory {
	return &SingleHandleShardFactory{handle: h}
}

// ShardFor always returns the wrapped handle, ignoring userID and namespace.
func (f *SingleHandleShardFactory) ShardFor(_ context.Context, _, _ string) (*store.Handle, error) {
	return f.handle, nil
}
