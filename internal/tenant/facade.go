/*
Package tenant is the multi-tenant façade over the collection engine: every
operation is parameterized by (user_id, namespace, collection, ...) instead
of a bare collection name, and a per-user index shard records which
namespaces a user has written to.

# Isolation

A [ShardFactory] resolves the storage handle for a (user_id, namespace)
pair, but isolation between pairs is enforced independently of what the
factory returns: the façade folds user id and namespace into the
collection name it hands to [github.com/relaydb/collections/internal/store],
so two users (or two namespaces) sharing a physical handle still never see
each other's rows.
*/
package tenant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/relaydb/collections/internal/filter"
	"github.com/relaydb/collections/internal/platform/constants"
	"github.com/relaydb/collections/internal/platform/ctxutil"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/internal/store"
)

// Facade is the tenant-scoped document-operation surface.
type Facade struct {
	factory ShardFactory

	mu          sync.Mutex
	managers    map[*store.Handle]*store.Manager
	namedShards map[string]struct{}
}

// New returns a Facade resolving shards through factory.
func New(factory ShardFactory) *Facade {
	return &Facade{
		factory:     factory,
		managers:    make(map[*store.Handle]*store.Manager),
		namedShards: make(map[string]struct{}),
	}
}

// resolve stamps an operation id on ctx, resolves the shard's handle,
// returns the (cached) Manager for that handle, and — the first time this
// process sees the (userID, namespace) pair — records a human-readable
// shard name in the handle's metadata table.
func (f *Facade) resolve(ctx context.Context, userID, namespace string) (*store.Manager, context.Context, error) {
	opID := uuid.NewString()
	ctx = ctxutil.WithOperationID(ctx, opID)
	logger := ctxutil.GetLogger(ctx).With(
		slog.String("operation_id", opID),
		slog.String("user_id", userID),
		slog.String("namespace", namespace),
	)

	h, err := f.factory.ShardFor(ctx, userID, namespace)
	if err != nil {
		logger.Error("shard_resolution_failed", slog.Any("error", err))
		return nil, ctx, err
	}

	key := shardKey(userID, namespace)

	f.mu.Lock()
	mgr, ok := f.managers[h]
	if !ok {
		mgr = store.NewManager(h)
		f.managers[h] = mgr
	}
	_, named := f.namedShards[key]
	if !named {
		f.namedShards[key] = struct{}{}
	}
	f.mu.Unlock()

	if !named {
		if err := h.SetMetadata(ctx, shardMetadataKey(userID, namespace), humanShardName(userID, namespace)); err != nil {
			logger.Error("shard_metadata_write_failed", slog.Any("error", err))
			return nil, ctx, err
		}
	}

	logger.Debug("shard_resolved")
	return mgr, ctx, nil
}

func resolveNamespace(namespace string) string {
	if namespace == "" {
		return constants.DefaultNamespace
	}
	return namespace
}

// shardKey identifies a (userID, namespace) pair, independent of whatever
// physical handle it currently resolves to.
func shardKey(userID, namespace string) string {
	return userID + "\x1f" + namespace
}

// shardCollectionName folds a tenant and namespace into the name the
// underlying engine treats as an opaque, unvalidated row-scoping value.
func shardCollectionName(userID, namespace, collection string) string {
	return shardKey(userID, namespace) + "\x1f" + collection
}

func shardMetadataKey(userID, namespace string) string {
	return "shard_name:" + shardKey(userID, namespace)
}

func humanShardName(userID, namespace string) string {
	return userID + "/" + namespace
}

func indexNamespace(userID string) string {
	return constants.IndexShardNamespacePrefix + userID
}

func isIndexNamespace(userID, namespace string) bool {
	return namespace == indexNamespace(userID)
}

// recordNamespace idempotently upserts namespace into the user's reserved
// _namespaces collection. It is a no-op when namespace is itself the
// user's index shard, so the index never records its own existence.
func (f *Facade) recordNamespace(ctx context.Context, userID, namespace string) error {
	if isIndexNamespace(userID, namespace) {
		return nil
	}

	ns := indexNamespace(userID)
	mgr, ctx, err := f.resolve(ctx, userID, ns)
	if err != nil {
		return err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, ns, constants.NamespaceIndexCollection))
	if err != nil {
		return err
	}
	return col.Put(ctx, namespace, map[string]any{"namespace": namespace})
}

// ListNamespaces returns every namespace userID has successfully written
// to at least once, sorted ascending.
func (f *Facade) ListNamespaces(ctx context.Context, userID string) ([]string, error) {
	ns := indexNamespace(userID)
	mgr, ctx, err := f.resolve(ctx, userID, ns)
	if err != nil {
		return nil, err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, ns, constants.NamespaceIndexCollection))
	if err != nil {
		return nil, err
	}
	return col.Keys(ctx)
}

// ShardName returns the human-readable name recorded for (userID,
// namespace)'s shard, or false if that pair has never been resolved.
func (f *Facade) ShardName(ctx context.Context, userID, namespace string) (string, bool, error) {
	namespace = resolveNamespace(namespace)
	h, err := f.factory.ShardFor(ctx, userID, namespace)
	if err != nil {
		return "", false, err
	}
	return h.Metadata(ctx, shardMetadataKey(userID, namespace))
}

// Get returns the document stored at id in (userID, namespace, collection).
func (f *Facade) Get(ctx context.Context, userID, namespace, collection, id string) (map[string]any, bool, error) {
	namespace = resolveNamespace(namespace)
	mgr, ctx, err := f.resolve(ctx, userID, namespace)
	if err != nil {
		return nil, false, err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, namespace, collection))
	if err != nil {
		return nil, false, err
	}
	return col.Get(ctx, id)
}

// Put writes doc at id in (userID, namespace, collection), then records
// namespace in the user's namespace index as a side effect.
func (f *Facade) Put(ctx context.Context, userID, namespace, collection, id string, doc map[string]any) error {
	namespace = resolveNamespace(namespace)
	mgr, ctx, err := f.resolve(ctx, userID, namespace)
	if err != nil {
		return err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, namespace, collection))
	if err != nil {
		return err
	}
	if err := col.Put(ctx, id, doc); err != nil {
		return err
	}
	return f.recordNamespace(ctx, userID, namespace)
}

// Delete removes id from (userID, namespace, collection).
func (f *Facade) Delete(ctx context.Context, userID, namespace, collection, id string) (bool, error) {
	namespace = resolveNamespace(namespace)
	mgr, ctx, err := f.resolve(ctx, userID, namespace)
	if err != nil {
		return false, err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, namespace, collection))
	if err != nil {
		return false, err
	}
	return col.Delete(ctx, id)
}

// List returns every document in (userID, namespace, collection) honoring opts.
func (f *Facade) List(ctx context.Context, userID, namespace, collection string, opts validate.QueryOptions) ([]map[string]any, error) {
	return f.Find(ctx, userID, namespace, collection, nil, opts)
}

// Find returns every document in (userID, namespace, collection) matching f
// (nil matches everything), honoring opts.
func (f *Facade) Find(ctx context.Context, userID, namespace, collection string, filt filter.Filter, opts validate.QueryOptions) ([]map[string]any, error) {
	namespace = resolveNamespace(namespace)
	mgr, ctx, err := f.resolve(ctx, userID, namespace)
	if err != nil {
		return nil, err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, namespace, collection))
	if err != nil {
		return nil, err
	}
	return col.Find(ctx, filt, opts)
}

// Count returns the number of documents in (userID, namespace, collection)
// matching f (nil matches every document).
func (f *Facade) Count(ctx context.Context, userID, namespace, collection string, filt filter.Filter) (int, error) {
	namespace = resolveNamespace(namespace)
	mgr, ctx, err := f.resolve(ctx, userID, namespace)
	if err != nil {
		return 0, err
	}
	col, err := mgr.Collection(ctx, shardCollectionName(userID, namespace, collection))
	if err != nil {
		return 0, err
	}
	return col.Count(ctx, filt)
}
