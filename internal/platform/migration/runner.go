/*
Package migration provides a thin wrapper around golang-migrate for
bootstrapping the SQLite schema.

# Architecture

This package belongs to the Infrastructure layer. It enforces schema
idempotency during process startup, ensuring the database is always in the
correct state before any shard is opened. Migration SQL is embedded into the
binary via [embed.FS] so the service never depends on a filesystem layout at
runtime.
*/
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	sqlite3mig "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunUp applies all pending UP migrations against an already-open SQLite
// connection. Reusing the caller's *sql.DB (rather than letting
// golang-migrate open its own) matters for ":memory:" databases, where a
// second connection would see an empty schema.
func RunUp(db *sql.DB, logger *slog.Logger) error {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration: failed to load embedded source: %w", err)
	}

	dbDriver, err := sqlite3mig.WithInstance(db, &sqlite3mig.Config{})
	if err != nil {
		return fmt.Errorf("migration: failed to initialize driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		if sourceError, dbError := migrator.Close(); sourceError != nil || dbError != nil {
			if sourceError != nil {
				logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
			}
			if dbError != nil {
				logger.Error("migration_db_close_failed", slog.Any("error", dbError))
			}
		}
	}()

	migrator.Log = &migrateLogger{logger: logger}

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started", slog.Int("current_version", int(currentVersion)))

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return nil
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
