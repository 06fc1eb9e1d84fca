package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/clock"
	"github.com/joeldasilva/polycache/internal/errs"
	"github.com/joeldasilva/polycache/internal/singleflight"
	"github.com/joeldasilva/polycache/internal/util"
	"github.com/joeldasilva/polycache/policy"
	"github.com/joeldasilva/polycache/policy/fifo"
	"github.com/joeldasilva/polycache/policy/lru"
	"github.com/joeldasilva/polycache/policy/s3fifo"
	"github.com/joeldasilva/polycache/policy/sieve"
	"github.com/joeldasilva/polycache/policy/tinylfu"
)

// ErrInvalidConfiguration is returned by New when Options are internally
// inconsistent.
var ErrInvalidConfiguration = errs.ErrInvalidConfiguration

// ErrAllocationFailed is returned by Set/SetWithTTL/Add when the
// configured Allocator refuses a reservation for a new entry.
var ErrAllocationFailed = errs.ErrAllocationFailed

// ErrNoLoader is returned by GetOrLoad when no Loader was configured.
var ErrNoLoader = errors.New("cache: no Loader provided")

// cache is a sharded in-memory KV store with a pluggable eviction policy.
// All methods are safe for concurrent use by multiple goroutines, unless
// Options.Unsynchronized was set.
type cache[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	closed atomic.Bool

	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New constructs a cache from opt, returning ErrInvalidConfiguration if
// the settings are internally inconsistent.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Capacity <= 0 {
		return nil, ErrInvalidConfiguration
	}
	if opt.Shards < 0 {
		return nil, ErrInvalidConfiguration
	}
	if opt.PoolSize < 0 || opt.PoolSize > opt.Capacity {
		return nil, ErrInvalidConfiguration
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Clock == nil {
		opt.Clock = clock.Monotonic{}
	}
	if opt.Allocator == nil {
		opt.Allocator = arena.Default()
	}

	sh := opt.Shards
	if sh == 0 {
		sh = util.ReasonableShardCount()
	}
	poolSize := opt.PoolSize
	if poolSize == 0 {
		poolSize = opt.Capacity
	}

	factory, err := factoryFor[K, V](opt.Policy)
	if err != nil {
		return nil, err
	}

	perShardCap := (opt.Capacity + sh - 1) / sh
	perShardPool := (poolSize + sh - 1) / sh

	shards := make([]*shard[K, V], sh)
	for i := 0; i < sh; i++ {
		onEvict := makeOnEvict(opt)
		eng, err := factory.New(perShardCap, perShardPool, opt.Clock, opt.Allocator, onEvict)
		if err != nil {
			return nil, err
		}
		shards[i] = newShard[K, V](eng, !opt.Unsynchronized, opt.Clock, opt.Metrics)
	}

	return &cache[K, V]{
		shards: shards,
		hash:   util.Hash[K],
		opt:    opt,
	}, nil
}

func factoryFor[K comparable, V any](kind PolicyKind) (policy.Factory[K, V], error) {
	switch kind {
	case PolicyLRU:
		return lru.New[K, V](), nil
	case PolicyFIFO:
		return fifo.New[K, V](), nil
	case PolicySIEVE:
		return sieve.New[K, V](), nil
	case PolicyS3FIFO:
		return s3fifo.New[K, V](), nil
	case PolicyTinyLFU:
		return tinylfu.New[K, V](), nil
	default:
		return nil, ErrInvalidConfiguration
	}
}

// makeOnEvict adapts Options.OnEvict/Metrics into the callback a policy
// engine invokes synchronously for every capacity-driven eviction. TTL
// expirations are reported separately by shard.get, since the engine only
// learns about expiry through its own Get return value.
func makeOnEvict[K comparable, V any](opt Options[K, V]) policy.EvictedFunc[K, V] {
	return func(k K, v V) {
		opt.Metrics.Evict(EvictPolicy)
		if opt.OnEvict != nil {
			opt.OnEvict(k, v, EvictPolicy)
		}
	}
}

// ---- Cache[K,V] implementation ----

func (c *cache[K, V]) Add(k K, v V) (bool, error) {
	if c.closed.Load() {
		return false, nil
	}
	s, h := c.getShard(k)
	return s.add(k, h, v, c.defaultDeadline())
}

func (c *cache[K, V]) Set(k K, v V) error {
	if c.closed.Load() {
		return nil
	}
	s, h := c.getShard(k)
	return s.set(k, h, v, c.defaultDeadline())
}

func (c *cache[K, V]) SetWithTTL(k K, v V, ttl time.Duration) error {
	if c.closed.Load() {
		return nil
	}
	s, h := c.getShard(k)
	return s.set(k, h, v, c.deadline(ttl))
}

func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	s, h := c.getShard(k)
	v, ok, expired := s.get(k, h)
	if expired && c.opt.OnEvict != nil {
		c.opt.OnEvict(k, v, EvictTTL)
	}
	return v, ok
}

func (c *cache[K, V]) Remove(k K) bool {
	if c.closed.Load() {
		return false
	}
	s, h := c.getShard(k)
	return s.remove(k, h)
}

func (c *cache[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	s, h := c.getShard(k)
	return s.contains(k, h)
}

func (c *cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.len()
	}
	return total
}

// Close marks the cache as closed; future operations are no-ops. There are
// no background workers to stop since expiration is purely lazy.
func (c *cache[K, V]) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	return c.sf.Do(ctx, k, func() (V, error) {
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		if err := c.Set(k, v); err != nil {
			return v, err
		}
		return v, nil
	})
}

// ---- helpers ----

func (c *cache[K, V]) getShard(k K) (*shard[K, V], uint64) {
	h := c.hash(k)
	return c.shards[util.ShardIndex(h, len(c.shards))], h
}

func (c *cache[K, V]) defaultDeadline() int64 {
	if c.opt.DefaultTTL <= 0 {
		return 0
	}
	return c.deadline(c.opt.DefaultTTL)
}

func (c *cache[K, V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.opt.Clock.NowMillis() + ttl.Milliseconds()
}
