package store

import (
	"context"
	"database/sql"
	"errors"
	"runtime"
	"sync"
	"weak"

	"github.com/relaydb/collections/internal/platform/dberr"
	"github.com/relaydb/collections/internal/store/schema"
)

// Handle is a storage handle: one SQLite connection pool backing however
// many collections are opened against it. Its identity (the pointer
// itself) is what the schema-bootstrap set below tracks.
type Handle struct {
	DB *sql.DB
}

// NewHandle wraps an already-open database connection.
func NewHandle(db *sql.DB) *Handle {
	return &Handle{DB: db}
}

// initializedSet tracks which handles have already had their schema
// bootstrapped, keyed by weak pointer so a disposed Handle's entry is
// reclaimed instead of pinning it in memory forever.
var (
	initMu          sync.Mutex
	initializedSet  = make(map[weak.Pointer[Handle]]struct{})
)

// ensureSchema creates the idempotent DDL objects the collection engine
// depends on, at most once per handle's lifetime.
func ensureSchema(ctx context.Context, h *Handle) error {
	ptr := weak.Make(h)

	initMu.Lock()
	_, done := initializedSet[ptr]
	initMu.Unlock()
	if done {
		return nil
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS ` + schema.CollectionsTable + ` (
			` + schema.ColCollection + ` TEXT NOT NULL,
			` + schema.ColID + ` TEXT NOT NULL,
			` + schema.ColData + ` TEXT NOT NULL,
			` + schema.ColCreatedAt + ` INTEGER NOT NULL,
			` + schema.ColUpdatedAt + ` INTEGER NOT NULL,
			PRIMARY KEY (` + schema.ColCollection + `, ` + schema.ColID + `)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_collection ON ` + schema.CollectionsTable + ` (` + schema.ColCollection + `)`,
		`CREATE INDEX IF NOT EXISTS idx_collections_collection_updated_at ON ` + schema.CollectionsTable + ` (` + schema.ColCollection + `, ` + schema.ColUpdatedAt + `)`,
		`CREATE TABLE IF NOT EXISTS ` + schema.MetadataTable + ` (
			` + schema.ColMetaKey + ` TEXT NOT NULL PRIMARY KEY,
			` + schema.ColMetaValue + ` TEXT NOT NULL
		)`,
	}

	for _, stmt := range ddl {
		if _, err := h.DB.ExecContext(ctx, stmt); err != nil {
			return dberr.Wrap(err, "schema bootstrap")
		}
	}

	initMu.Lock()
	initializedSet[ptr] = struct{}{}
	initMu.Unlock()

	runtime.AddCleanup(h, func(p weak.Pointer[Handle]) {
		initMu.Lock()
		delete(initializedSet, p)
		initMu.Unlock()
	}, ptr)

	return nil
}

// SetMetadata upserts value under key in this handle's metadata table, e.g.
// a human-readable shard name.
func (h *Handle) SetMetadata(ctx context.Context, key, value string) error {
	if err := ensureSchema(ctx, h); err != nil {
		return err
	}

	query := `INSERT INTO ` + schema.MetadataTable + ` (` + schema.ColMetaKey + `, ` + schema.ColMetaValue + `)
		VALUES (?, ?)
		ON CONFLICT(` + schema.ColMetaKey + `) DO UPDATE SET ` + schema.ColMetaValue + ` = excluded.` + schema.ColMetaValue

	if _, err := h.DB.ExecContext(ctx, query, key, value); err != nil {
		return dberr.Wrap(err, "set metadata")
	}
	return nil
}

// Metadata returns the value stored under key, and whether it was present.
func (h *Handle) Metadata(ctx context.Context, key string) (string, bool, error) {
	if err := ensureSchema(ctx, h); err != nil {
		return "", false, err
	}

	query := `SELECT ` + schema.ColMetaValue + ` FROM ` + schema.MetadataTable + ` WHERE ` + schema.ColMetaKey + ` = ?`

	var value string
	err := h.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, dberr.Wrap(err, "get metadata")
	}
	return value, true, nil
}
