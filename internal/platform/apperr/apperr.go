/*
Package apperr defines the centralized error taxonomy for the collections core.

Every error this package constructs is one of exactly four kinds:
InvalidArgument, NotFound, Conflict, Internal. Validation failures and
storage errors passed through dberr.Wrap surface as these kinds; JSON
encode/decode failures in the store package and the row-iteration errors
of Collection.Keys, Manager.Names and Manager.Stats are returned
unwrapped, not as an [*AppError]. NotFound is also
exposed as a plain sentinel — read paths return it as a value via
[errors.Is], they never raise it; write paths that report absence report it
as a bare `false`, never as an error.

# Security

The Cause field is for server-side logging only; it is deliberately excluded
from [AppError.Error] so implementation details (SQL text, driver errors)
never leak through a layer that forwards these errors to a caller.
*/
package apperr

import (
	"errors"
)

// AppError is the canonical error type for the collections core.
type AppError struct {
	// Code is a machine-readable error identifier, one of InvalidArgument,
	// NotFound, Conflict, Internal.
	Code string
	// Message is a human-readable description; for InvalidArgument it names
	// the offending parameter.
	Message string
	// Cause is the underlying error, used for server-side logging only.
	Cause error
	// Details holds per-field validation failures, if any.
	Details []FieldError
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Error kind codes.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL"
)

// ErrNotFound is the sentinel compared against with [errors.Is]. NotFound
// never escapes as a raised error from the document-operation surface —
// it exists for internal plumbing (e.g. [dberr.Wrap]) that needs a
// comparable value before the caller translates it into an absent result.
var ErrNotFound = &AppError{Code: CodeNotFound, Message: "not found"}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] with the same Code, comparing
// by Code rather than identity so a freshly constructed NotFound also
// matches [ErrNotFound].
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// # Constructors

// InvalidArgument creates an [AppError] naming the offending parameter.
func InvalidArgument(msg string) *AppError {
	return &AppError{Code: CodeInvalidArgument, Message: msg}
}

// InvalidField creates an [AppError] with a single field-level detail.
func InvalidField(field, msg string) *AppError {
	return &AppError{
		Code:    CodeInvalidArgument,
		Message: msg,
		Details: []FieldError{{Field: field, Message: msg}},
	}
}

// NotFound creates a [AppError] for a named resource.
func NotFound(resource string) *AppError {
	return &AppError{Code: CodeNotFound, Message: resource + " not found"}
}

// Conflict creates an [AppError] for a constraint violation. The core does
// not currently produce one (writes use upsert semantics) but the kind is
// reserved so storage-level constraint failures have somewhere to go.
func Conflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg}
}

// Internal wraps any failure of the underlying storage engine or regex
// compiler. The cause is retained for logging but never rendered by Error().
func Internal(cause error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", Cause: cause}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
