// Package schema names the tables and columns the collection engine reads
// and writes, so the raw strings embedded in compiled SQL live in exactly
// one place.
package schema

// CollectionsTable holds every document, across every collection, as a
// single JSON blob addressed by (collection, id).
const CollectionsTable = "_collections"

// Columns of [CollectionsTable].
const (
	ColCollection = "collection"
	ColID         = "id"
	ColData       = "data"
	ColCreatedAt  = "created_at"
	ColUpdatedAt  = "updated_at"
)

// MetadataTable is a flat key/value store for per-handle bookkeeping that
// has no natural home in [CollectionsTable] — a human-readable shard name,
// for instance. Callers choose their own keys; the table imposes no shape
// on them beyond "string to string".
const MetadataTable = "_do_metadata"

// Columns of [MetadataTable].
const (
	ColMetaKey   = "key"
	ColMetaValue = "value"
)
