// Package errs holds the sentinel errors shared across the core so that
// internal packages (pool, hashmap, policy engines) and the public cache
// package can agree on identity via errors.Is without an import cycle
// back to the cache package.
package errs

import "errors"

// ErrInvalidConfiguration is returned by construction when Options are
// internally inconsistent (a capacity <= 0, a negative shard count, a
// pool size that is negative or larger than the capacity, or an unknown
// policy). A shard count of 0 is not rejected: construction picks a
// default shard count instead. Raised only at construction.
var ErrInvalidConfiguration = errors.New("polycache: invalid configuration")

// ErrAllocationFailed is returned when pool growth or hash-table growth
// could not obtain memory, per the Allocator collaborator's gate.
var ErrAllocationFailed = errors.New("polycache: allocation failed")
