package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type fakeClock struct{ t int64 }

func (f *fakeClock) NowMillis() int64    { return f.t }
func (f *fakeClock) add(d time.Duration) { f.t += d.Milliseconds() }

// Uses a fake clock to avoid timing flakiness.
// Ensures that per-entry TTL is respected.
func TestCache_TTL_FakeClock(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c, err := New[string, string](Options[string, string]{Capacity: 4, Clock: clk})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.SetWithTTL("x", "v", 100*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	if _, ok := c.Get("x"); !ok {
		t.Fatal("fresh miss")
	}
	clk.add(200 * time.Millisecond)
	if _, ok := c.Get("x"); ok {
		t.Fatal("expired hit")
	}
}

// Len must stay accurate immediately after a lazy TTL eviction through Get,
// without needing a following Set/Add/Remove to "self-heal" the count, and
// Contains must agree with Get about an expired-but-untouched entry.
func TestCache_TTLExpiry_LenAndContainsStayConsistent(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	c, err := New[string, string](Options[string, string]{Capacity: 4, Clock: clk})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.SetWithTTL("x", "v", 100*time.Millisecond); err != nil {
		t.Fatalf("SetWithTTL: %v", err)
	}
	if err := c.Set("y", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	clk.add(200 * time.Millisecond)

	if c.Contains("x") {
		t.Fatal("Contains must report the entry absent once its TTL has passed")
	}
	if _, ok := c.Get("x"); ok {
		t.Fatal("Get must report the entry absent once its TTL has passed")
	}
	if got, want := c.Len(), 1; got != want {
		t.Fatalf("Len after lazy TTL eviction via Get: got %d, want %d", got, want)
	}
}

// Basic Add/Set/Get/Remove/Contains semantics.
// Add inserts only if key is absent; Set updates; Remove deletes.
func TestCache_BasicAddSetGetRemove(t *testing.T) {
	t.Parallel()

	c, err := New[string, int](Options[string, int]{Capacity: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if added, err := c.Add("a", 1); !added || err != nil {
		t.Fatalf("Add a=1 must be true, got added=%v err=%v", added, err)
	}
	if added, _ := c.Add("a", 2); added {
		t.Fatal("Add duplicate must be false")
	}

	if err := c.Set("a", 11); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}
	if !c.Contains("a") {
		t.Fatal("Contains a must be true")
	}

	if !c.Remove("a") {
		t.Fatal("Remove a must be true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
	if c.Contains("a") {
		t.Fatal("Contains a must be false after Remove")
	}
}

// Deterministic LRU eviction: single shard, small capacity.
// Accessing "a" promotes it; inserting "c" evicts LRU ("b").
func TestCache_EvictionLRU(t *testing.T) {
	t.Parallel()

	c, err := New[string, int](Options[string, int]{
		Capacity: 2,
		Shards:   1, // force a single shard so LRU is global
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	_ = c.Set("a", 1) // LRU = a
	_ = c.Set("b", 2) // MRU = b

	if _, ok := c.Get("a"); !ok { // promote a -> MRU
		t.Fatal("expect hit for a")
	}
	_ = c.Set("c", 3) // overflow -> evict LRU (b)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (promoted)")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

// Deterministic FIFO: a hit must not change eviction order.
func TestCache_EvictionFIFO(t *testing.T) {
	t.Parallel()

	c, err := New[string, int](Options[string, int]{
		Capacity: 2,
		Shards:   1,
		Policy:   PolicyFIFO,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	_ = c.Set("a", 1)
	_ = c.Set("b", 2)
	c.Get("a") // must NOT promote under FIFO
	_ = c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be evicted: FIFO ignores hits")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("b must survive")
	}
}

// Eviction callback fires with the right reason for capacity overflow.
func TestCache_OnEvictPolicyReason(t *testing.T) {
	t.Parallel()

	var gotReason EvictReason
	var gotKey string
	c, err := New[string, int](Options[string, int]{
		Capacity: 1,
		Shards:   1,
		OnEvict: func(k string, _ int, reason EvictReason) {
			gotKey, gotReason = k, reason
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	_ = c.Set("a", 1)
	_ = c.Set("b", 2)

	if gotKey != "a" || gotReason != EvictPolicy {
		t.Fatalf("want eviction of a with EvictPolicy, got key=%q reason=%v", gotKey, gotReason)
	}
}

// Construction rejects an invalid configuration instead of panicking.
func TestCache_NewRejectsInvalidConfiguration(t *testing.T) {
	t.Parallel()

	if _, err := New[string, int](Options[string, int]{Capacity: 0}); err == nil {
		t.Fatal("want error for zero capacity")
	}
	if _, err := New[string, int](Options[string, int]{Capacity: 10, PoolSize: 20}); err == nil {
		t.Fatal("want error for PoolSize > Capacity")
	}
}

// Singleflight test: concurrent GetOrLoad calls for the same key
// should trigger the Loader at most once; subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c, err := New[string, string](Options[string, string]{
		Capacity: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}

	if v, err := c.GetOrLoad(context.Background(), "k"); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

// GetOrLoad without a Loader reports ErrNoLoader rather than panicking.
func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](Options[string, string]{Capacity: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.GetOrLoad(context.Background(), "missing"); err != ErrNoLoader {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}

// Unsynchronized mode must still behave correctly for single-goroutine use.
func TestCache_Unsynchronized(t *testing.T) {
	t.Parallel()

	c, err := New[string, int](Options[string, int]{
		Capacity:       4,
		Shards:         1,
		Unsynchronized: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	_ = c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get a want 1, got %v ok=%v", v, ok)
	}
}
