package cache

import (
	"context"
	"time"

	"github.com/joeldasilva/polycache/internal/arena"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — removed by the active eviction policy to satisfy capacity.
	EvictPolicy EvictReason = iota
	// EvictTTL — expired by TTL (lazy eviction on access).
	EvictTTL
)

// PolicyKind selects one of the published eviction policies.
type PolicyKind int

const (
	// PolicyLRU is the default: move-to-back on hit, evict-oldest on
	// overflow.
	PolicyLRU PolicyKind = iota
	// PolicyFIFO never reorders on hit.
	PolicyFIFO
	// PolicySIEVE uses a hand cursor and per-node visited bit.
	PolicySIEVE
	// PolicyS3FIFO uses Small/Main/Ghost queues with a frequency counter.
	PolicyS3FIFO
	// PolicyTinyLFU uses a Window/Probationary/Protected split gated by a
	// Count-Min Sketch.
	PolicyTinyLFU
)

// Metrics exposes cache-level observability hooks. A NoopMetrics
// implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int)
}

// Clock provides time in milliseconds since an arbitrary monotonic
// epoch; useful for deterministic tests.
type Clock interface{ NowMillis() int64 }

// Options configures the cache behavior. Zero values are safe; sane
// defaults are applied in New():
//   - Policy == PolicyLRU (the zero value) is the default strategy
//   - Shards == 0  => auto, a reasonable power of two for GOMAXPROCS
//   - PoolSize == 0 => equal to Capacity (fully preallocated)
//   - nil Metrics  => NoopMetrics
//   - nil Clock    => a monotonic millisecond clock
//   - nil Allocator => unbounded (never fails Reserve)
type Options[K comparable, V any] struct {
	// Capacity is the total entry count limit, split across shards.
	Capacity int

	// Shards defines the number of shards. If 0, an automatic value is
	// chosen (~2*GOMAXPROCS, rounded to the next power of two).
	Shards int

	// PoolSize bounds preallocated nodes per shard, split proportionally
	// from this total. Must not exceed Capacity. 0 means "= Capacity".
	PoolSize int

	// Policy selects the eviction strategy. Zero value is PolicyLRU.
	Policy PolicyKind

	// Unsynchronized elides per-shard locking entirely. Only safe when
	// the caller guarantees the cache is never used from more than one
	// goroutine at a time.
	Unsynchronized bool

	// DefaultTTL applies to Add/Set when no per-key TTL is given (0 = no
	// TTL).
	DefaultTTL time.Duration

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every eviction; keep callbacks lightweight.
	// Policy evictions are reported under the owning shard's lock; TTL
	// expirations are reported by Get after that lock is released.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics

	// Clock overrides the time source (tests mainly). Nil uses a real
	// monotonic clock.
	Clock Clock

	// Allocator overrides the allocation-reservation gate consulted by
	// the pool and hash table. Nil means reservations never fail.
	Allocator arena.Allocator
}
