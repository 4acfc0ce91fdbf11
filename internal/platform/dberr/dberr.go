// Package dberr bridges low-level SQLite driver errors into [apperr.AppError].
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/relaydb/collections/internal/platform/apperr"
)

// ErrNotFound is what [Wrap] returns for [sql.ErrNoRows]. Document
// operations and single-row lookups such as
// [github.com/relaydb/collections/internal/store.Handle.Metadata] check for
// sql.ErrNoRows before calling Wrap and return an absent result instead, so
// none of them raise it.
var ErrNotFound = apperr.ErrNotFound

// Wrap inspects a database error and classifies it into an [apperr.AppError].
// It hides internal database details (SQL text, constraint names) from
// anything that forwards the error further out.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint {
			return apperr.Conflict(fmt.Sprintf("%s: constraint violation", action))
		}
	}

	return apperr.Internal(fmt.Errorf("sqlite: %s: %w", action, err))
}
