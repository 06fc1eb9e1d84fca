package cache

import (
	"sync"

	"github.com/joeldasilva/polycache/internal/util"
	"github.com/joeldasilva/polycache/policy"
)

// rwLocker lets a shard elide locking entirely when Options.Unsynchronized
// is set, without branching on every call site.
type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// noopLocker is the zero-cost lock used when the caller promises
// single-goroutine access to the whole cache.
type noopLocker struct{}

func (noopLocker) Lock()    {}
func (noopLocker) Unlock()  {}
func (noopLocker) RLock()   {}
func (noopLocker) RUnlock() {}

// shard owns one independent eviction engine plus the lock guarding it.
// Splitting the keyspace across shards is what lets concurrent callers
// touching different keys proceed without contending on a single mutex.
type shard[K comparable, V any] struct {
	mu  rwLocker
	eng policy.Engine[K, V]

	// size mirrors eng.Len() outside the lock so Cache.Len() can sum every
	// shard without contending on each one's mutex; padded to its own
	// cache line since every shard's counter is written by a different
	// set of goroutines.
	size util.PaddedAtomicInt64

	clk     Clock
	metrics Metrics
}

func newShard[K comparable, V any](eng policy.Engine[K, V], synchronized bool, clk Clock, metrics Metrics) *shard[K, V] {
	var mu rwLocker
	if synchronized {
		mu = &sync.RWMutex{}
	} else {
		mu = noopLocker{}
	}
	return &shard[K, V]{mu: mu, eng: eng, clk: clk, metrics: metrics}
}

// get returns (value, true) on a live hit. A lazily-discovered expired
// entry is reported as a miss; the shard's onEvict wiring (done through
// the engine's onEvict callback at construction) never sees TTL
// expirations, so the cache front end reports them here instead. The size
// mirror is refreshed before the lock is released so it never lags behind
// an eviction this call just performed.
func (s *shard[K, V]) get(k K, h uint64) (V, bool, bool) {
	s.mu.Lock()
	v, res := s.eng.Get(k, h, s.clk.NowMillis())
	if res == policy.Expired {
		s.size.Store(int64(s.eng.Len()))
	}
	s.mu.Unlock()

	switch res {
	case policy.Hit:
		s.metrics.Hit()
		return v, true, false
	case policy.Expired:
		s.metrics.Miss()
		s.metrics.Evict(EvictTTL)
		var zero V
		return zero, false, true
	default:
		s.metrics.Miss()
		var zero V
		return zero, false, false
	}
}

func (s *shard[K, V]) set(k K, h uint64, v V, expAt int64) error {
	s.mu.Lock()
	err := s.eng.Set(k, h, v, expAt, s.clk.NowMillis())
	n := s.eng.Len()
	if err == nil {
		s.size.Store(int64(n))
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.metrics.Size(n)
	return nil
}

func (s *shard[K, V]) add(k K, h uint64, v V, expAt int64) (bool, error) {
	s.mu.Lock()
	if s.eng.Contains(k, h, s.clk.NowMillis()) {
		s.mu.Unlock()
		return false, nil
	}
	err := s.eng.Set(k, h, v, expAt, s.clk.NowMillis())
	n := s.eng.Len()
	if err == nil {
		s.size.Store(int64(n))
	}
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.metrics.Size(n)
	return true, nil
}

func (s *shard[K, V]) remove(k K, h uint64) bool {
	s.mu.Lock()
	_, ok := s.eng.Remove(k, h)
	n := s.eng.Len()
	if ok {
		s.size.Store(int64(n))
	}
	s.mu.Unlock()
	if ok {
		s.metrics.Size(n)
	}
	return ok
}

// contains reports presence, treating an expired-but-untouched entry as
// absent, matching Get's behavior. It never mutates the engine.
func (s *shard[K, V]) contains(k K, h uint64) bool {
	s.mu.RLock()
	ok := s.eng.Contains(k, h, s.clk.NowMillis())
	s.mu.RUnlock()
	return ok
}

// len returns the shard's last-known resident count without taking the
// lock, read from the mirrored atomic counter.
func (s *shard[K, V]) len() int {
	return int(s.size.Load())
}
