/*
Collections is the entry point for the collections storage core.

It wires the SQLite-backed collection engine and the multi-tenant façade
together, runs the embedded schema migration, seeds a small demo namespace,
and exits. There is no HTTP transport here — that surface is out of scope
for this core.

Usage:

	go run ./cmd/collections [-seed N]

The flags/environment variables are:

	ENVIRONMENT     deployment environment (development, production)
	DEBUG           enable debug-level logging
	STORAGE_PATH    SQLite file path, or ":memory:" for an ephemeral store

Startup Sequence:

 1. Logger: Initialize structured JSON logging (slog).
 2. Config: Load and validate environment variables.
 3. Storage: Open the SQLite connection pool.
 4. Migration: Run the idempotent schema migration.
 5. Wiring: Construct the shard factory and tenant façade.
 6. Demo: Seed and read back a handful of documents.

No business logic lives here. This file is strictly for orchestration and wiring.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/relaydb/collections/internal/platform/config"
	"github.com/relaydb/collections/internal/platform/constants"
	"github.com/relaydb/collections/internal/platform/migration"
	"github.com/relaydb/collections/internal/platform/sqlitedb"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/internal/store"
	"github.com/relaydb/collections/internal/tenant"
	"github.com/relaydb/collections/pkg/convert"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	seedFlag := flag.String("seed", "", "number of demo documents to seed (default 3)")
	flag.Parse()
	seedCount := convert.ToIntD(*seedFlag, 3)

	// # 1. Logger
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)
	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}
	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("storage_path", cfg.StoragePath),
	)

	startupCtx, cancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer cancel()

	// # 3. Storage
	db, err := sqlitedb.Open(startupCtx, cfg.StoragePath, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		log.Info("closing storage handle")
		db.Close()
	}()

	// # 4. Migrations
	if err := migration.RunUp(db, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 5. Wiring
	handle := store.NewHandle(db)
	factory := tenant.NewSingleHandleShardFactory(handle)
	facade := tenant.New(factory)

	// # 6. Demo
	if err := seedDemo(startupCtx, facade, log, seedCount); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}

	log.Info("collections_ready")
	return nil
}

// seedDemo writes seedCount documents into a demo user's default namespace
// and logs what comes back, exercising the façade's full write/read/list
// path on every startup.
func seedDemo(ctx context.Context, facade *tenant.Facade, log *slog.Logger, seedCount int) error {
	const userID = "demo-user"

	for i := 0; i < seedCount; i++ {
		id := fmt.Sprintf("doc-%d", i)
		doc := map[string]any{"index": float64(i), "label": fmt.Sprintf("item %d", i)}
		if err := facade.Put(ctx, userID, "", "demo", id, doc); err != nil {
			return err
		}
	}

	docs, err := facade.List(ctx, userID, "", "demo", validate.QueryOptions{})
	if err != nil {
		return err
	}

	namespaces, err := facade.ListNamespaces(ctx, userID)
	if err != nil {
		return err
	}

	log.Info("demo_seed_complete",
		slog.Int("document_count", len(docs)),
		slog.Any("namespaces", namespaces),
	)
	return nil
}
