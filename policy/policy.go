// Package policy defines the contract every eviction strategy implements.
// Unlike a shared-list design where policies manipulate a shard's single
// intrusive list through hooks, each Engine here owns its own map, list(s),
// and node pool outright: FIFO and LRU need one list, SIEVE needs one list
// plus a hand cursor, S3-FIFO and W-TinyLFU need three. A shared Hooks
// indirection can't express that without leaking per-policy state back into
// the shard, so the shard instead holds an opaque Engine per partition.
package policy

import (
	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/clock"
)

// GetResult classifies the outcome of Engine.Get.
type GetResult uint8

const (
	// Miss means the key was not resident.
	Miss GetResult = iota
	// Hit means the key was resident and unexpired.
	Hit
	// Expired means the key was resident but its TTL had elapsed; the
	// engine has already evicted it and the returned value is the stale
	// one the caller should report through its eviction path.
	Expired
)

// EvictedFunc is invoked synchronously, under the caller's lock, whenever
// an Engine evicts an entry to satisfy its capacity (never for TTL
// expiry, which the caller observes via Engine.Get's Expired result).
type EvictedFunc[K comparable, V any] func(k K, v V)

// Engine is a shard-local eviction strategy bound to one partition's worth
// of capacity. All methods are called under the owning shard's lock.
type Engine[K comparable, V any] interface {
	// Get looks up k. now is the caller's current time in milliseconds;
	// an entry whose deadline has passed is evicted and reported as
	// Expired rather than Hit.
	Get(k K, h uint64, now int64) (V, GetResult)

	// Set inserts k->v if absent, or updates it in place if present.
	// exp is an absolute deadline in milliseconds (0 = no TTL). Insertion
	// may trigger one or more capacity evictions, each reported via the
	// EvictedFunc supplied at construction.
	Set(k K, h uint64, v V, exp int64, now int64) error

	// Remove deletes k unconditionally (no TTL check) and returns its
	// last value.
	Remove(k K, h uint64) (V, bool)

	// Contains reports presence, treating an entry whose deadline has
	// passed as absent. now is the caller's current time in milliseconds.
	// Unlike Get, a stale entry found here is left in place: Contains
	// never evicts and never influences recency ordering.
	Contains(k K, h uint64, now int64) bool

	// Len returns the number of resident entries.
	Len() int
}

// Factory constructs a fresh Engine for one shard. capacity bounds
// resident entries; poolSize bounds how many nodes are preallocated
// before falling back to heap allocation.
type Factory[K comparable, V any] interface {
	New(capacity, poolSize int, clk clock.Clock, alloc arena.Allocator, onEvict EvictedFunc[K, V]) (Engine[K, V], error)
}
