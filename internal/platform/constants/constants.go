/*
Package constants provides centralized, immutable values shared between the
filter compiler, storage engine, and tenant façade.

Using this package ensures magic strings and magic numbers are eliminated
from business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "collections"
	AppVersion = "0.1.0-dev"
)

// # Reserved Limits

const (
	// MaxLimit is the largest value a caller may set for a query's limit.
	MaxLimit = 10_000

	// MaxRegexPatternLength bounds a $regex pattern's length before it is
	// even inspected for catastrophic-backtracking shapes.
	MaxRegexPatternLength = 1_000

	// MaxFilterDepth bounds recursion through $and/$or/$not/field-predicate
	// subtrees during filter compilation and evaluation.
	MaxFilterDepth = 10

	// MaxBodySize is a host-ingress concern (referenced, not enforced, here).
	MaxBodySize = 1_048_576
)

// # Timing

const (
	// StartupTimeout bounds schema bootstrap and the initial storage handle
	// health check when a process wires up its storage shards.
	StartupTimeout = 30 * time.Second

	// ShutdownTimeout is how long in-flight shard operations are given to
	// finish before a host tears the process down.
	ShutdownTimeout = 30 * time.Second
)

// # Reserved Collection & Shard Names

const (
	// NamespaceIndexCollection is the reserved collection, inside a per-user
	// index shard, that records every namespace the user has written to.
	NamespaceIndexCollection = "_namespaces"

	// DefaultNamespace is used when a façade caller does not name one.
	DefaultNamespace = "default"

	// IndexShardNamespacePrefix names the per-user index shard namespace,
	// e.g. "index:alice".
	IndexShardNamespacePrefix = "index:"
)
