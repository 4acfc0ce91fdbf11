/*
Package sqlitedb opens and tunes the single [*sql.DB] handle every shard in
the tenant façade is ultimately backed by, and registers the driver-level
extensions the collection engine's compiled SQL depends on: a REGEXP scalar
function for $regex, and the PRAGMAs that make a single file safe for
concurrent readers and a serialized writer.

# Architecture

A single SQLite connection pool is shared by every shard (every (user_id,
namespace) pair is just rows scoped by a "collection" column inside it —
see [github.com/relaydb/collections/internal/store]), so this package only
ever opens one handle per process.
*/
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3_with_regexp"

// registerOnce guards sql.Register, which panics if called twice with the
// same driver name — something repeated test-package init() calls would
// otherwise trigger.
var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("REGEXP", regexpFunc, true)
			},
		})
	})
}

// regexpFunc backs the REGEXP(pattern, value) SQL function the filter
// compiler emits for $regex predicates. The pattern was already validated by
// [github.com/relaydb/collections/internal/platform/validate.RegexPattern]
// before compilation, but a malformed pattern here still returns an error,
// which fails the query, rather than panicking the connection.
func regexpFunc(pattern, value string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("sqlitedb: invalid regexp %q: %w", pattern, err)
	}
	return re.MatchString(value), nil
}

// Open connects to the SQLite database at path (use ":memory:" for an
// ephemeral, process-local store), applies pool tuning and PRAGMAs, and
// verifies connectivity with Ping before returning.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	registerDriver()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitedb: open: %w", err)
	}

	// SQLite serializes all writers regardless of pool size; a single
	// connection avoids SQLITE_BUSY races between readers and the writer
	// that WAL mode and _busy_timeout would otherwise only paper over.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitedb: ping: %w", err)
	}

	logger.Info("sqlitedb_connected", slog.String("path", path))

	return db, nil
}
