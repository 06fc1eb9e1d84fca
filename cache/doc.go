// Package cache provides a fast, generic, sharded in-memory cache with
// pluggable eviction policies (LRU, FIFO, SIEVE, S3-FIFO, W-TinyLFU),
// per-entry TTL, optional singleflight loading, and lightweight metrics
// hooks.
//
// Design
//
//   - Concurrency: the cache is split into shards, each guarded by its
//     own lock (or no lock at all when Options.Unsynchronized is set).
//     The default shard count is chosen by a heuristic
//     (util.ReasonableShardCount) and is a power of two where possible.
//     Splitting the keyspace across shards reduces contention while
//     keeping memory overhead small.
//
//   - Storage: each shard owns one policy.Engine, an open-addressed
//     hash table (internal/hashmap) for O(1) lookups, and one or more
//     intrusive doubly linked lists (internal/list) for ordering. Node
//     storage comes from a bounded pool (internal/pool), not per-entry
//     allocation.
//
//   - Policies: eviction policy is pluggable; select one via
//     Options.Policy (PolicyLRU is the default). Each policy lives in
//     its own package under policy/ and implements policy.Engine.
//
//   - TTL: entries can have a per-item deadline (milliseconds since the
//     configured Clock's epoch). Expiration is lazy, discovered on the
//     next Get.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals. By
//     default NoopMetrics is used; see package metrics/prom for a
//     Prometheus adapter.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every
//     eviction (reason is one of EvictPolicy, EvictTTL).
//
// Basic usage
//
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    // handle invalid configuration
//	}
//	_ = c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// With TTL
//
//	c, _ := cache.New[string, string](cache.Options[string, string]{Capacity: 1024})
//	_ = c.SetWithTTL("tmp", "v", 200*time.Millisecond)
//	time.Sleep(300 * time.Millisecond)
//	_, ok := c.Get("tmp") // ok == false (expired)
//
// With GetOrLoad (singleflight)
//
//	c, _ := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Selecting a policy
//
//	c, _ := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 50_000,
//	    Policy:   cache.PolicyS3FIFO,
//	})
//
// Exporting metrics (Prometheus adapter)
//
//	m := prom.New(nil, "polycache", "demo", nil) // implements cache.Metrics
//	c, _ := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use unless
// Options.Unsynchronized was set. Operation cost is amortized O(1): one
// hash-table access and a constant amount of list-pointer fixes.
// Eviction work is also O(1) amortized per removed entry (S3-FIFO's
// second-chance loop and W-TinyLFU's sketch-gated admission are bounded
// by small constant retry counts in practice).
//
// See options.go for all Options fields and package policy for the
// Engine/Factory contract used to implement additional strategies.
package cache
