// Package lru implements the classic move-to-back Least-Recently-Used
// eviction policy: a hit promotes the entry to most-recent, capacity
// evicts the least-recently-used entry.
package lru

import (
	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/clock"
	"github.com/joeldasilva/polycache/internal/hashmap"
	"github.com/joeldasilva/polycache/internal/list"
	"github.com/joeldasilva/polycache/internal/pool"
	"github.com/joeldasilva/polycache/policy"
)

type node[K comparable, V any] struct {
	key        K
	val        V
	hash       uint64
	exp        int64
	next, prev *node[K, V]
}

func (n *node[K, V]) Next() *node[K, V]     { return n.next }
func (n *node[K, V]) SetNext(m *node[K, V]) { n.next = m }
func (n *node[K, V]) Prev() *node[K, V]     { return n.prev }
func (n *node[K, V]) SetPrev(m *node[K, V]) { n.prev = m }

type engine[K comparable, V any] struct {
	m       *hashmap.Map[K, node[K, V]]
	l       list.List[*node[K, V]]
	pool    *pool.Pool[node[K, V]]
	cap     int
	onEvict policy.EvictedFunc[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Factory that builds LRU engines.
func New[K comparable, V any]() policy.Factory[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(capacity, poolSize int, _ clock.Clock, alloc arena.Allocator, onEvict policy.EvictedFunc[K, V]) (policy.Engine[K, V], error) {
	m, err := hashmap.New[K, node[K, V]](capacity, alloc)
	if err != nil {
		return nil, err
	}
	p, err := pool.New[node[K, V]](poolSize, alloc)
	if err != nil {
		return nil, err
	}
	if capacity < 1 {
		capacity = 1
	}
	return &engine[K, V]{m: m, pool: p, cap: capacity, onEvict: onEvict}, nil
}

func (e *engine[K, V]) Get(k K, h uint64, now int64) (V, policy.GetResult) {
	n, ok := e.m.Get(k, h)
	if !ok {
		var zero V
		return zero, policy.Miss
	}
	if n.exp != 0 && now > n.exp {
		_, v := e.detach(n)
		return v, policy.Expired
	}
	e.l.MoveToBack(n)
	return n.val, policy.Hit
}

func (e *engine[K, V]) Set(k K, h uint64, v V, exp int64, now int64) error {
	n, found, err := e.m.Set(k, h, func() (*node[K, V], error) { return e.pool.Acquire(), nil })
	if err != nil {
		return err
	}
	if found {
		n.val = v
		n.exp = exp
		e.l.MoveToBack(n)
		return nil
	}
	n.key, n.hash, n.val, n.exp = k, h, v, exp
	e.l.Append(n)
	e.enforceCapacity()
	return nil
}

func (e *engine[K, V]) Remove(k K, h uint64) (V, bool) {
	n, ok := e.m.Get(k, h)
	if !ok {
		var zero V
		return zero, false
	}
	_, v := e.detach(n)
	return v, true
}

func (e *engine[K, V]) Contains(k K, h uint64, now int64) bool {
	n, ok := e.m.Get(k, h)
	if !ok {
		return false
	}
	return n.exp == 0 || now <= n.exp
}

func (e *engine[K, V]) Len() int { return e.m.Len() }

func (e *engine[K, V]) detach(n *node[K, V]) (K, V) {
	e.l.Remove(n)
	e.m.Remove(n.key, n.hash)
	k, v := n.key, n.val
	e.pool.Release(n)
	return k, v
}

func (e *engine[K, V]) enforceCapacity() {
	for e.l.Len() > e.cap {
		victim := e.l.Head()
		if victim == nil {
			return
		}
		k, v := e.detach(victim)
		if e.onEvict != nil {
			e.onEvict(k, v)
		}
	}
}
