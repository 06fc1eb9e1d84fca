// Package sieve implements the SIEVE eviction algorithm: a FIFO queue
// with newest entries inserted at the head, plus a single hand cursor
// that walks from the oldest entry toward the head looking for an
// unvisited node, clearing visited bits as it passes over them. Reading
// an entry only sets its visited bit; unlike LRU it never moves.
package sieve

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
	visited    bool
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
	hand    *node[K, V]
	cap     int
	onEvict policy.EvictedFunc[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Factory that builds SIEVE engines.
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
	n.visited = true
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
		n.visited = true
		return nil
	}
	n.key, n.hash, n.val, n.exp, n.visited = k, h, v, exp, false
	e.l.Prepend(n)
	e.enforceCapacity()
	return nil
}

func (e *engine[K, V]) Remove(k K, h uint64) (V, bool) {
	n, ok := e.m.Get(k, h)
	if !ok {
		var zero V
		return zero, false
	}
	if e.hand == n {
		e.hand = n.Prev()
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
		e.evictOne()
	}
}

// evictOne runs one step of the SIEVE hand: starting from the persisted
// hand (or the tail if nil), it walks toward the head via Prev, clearing
// visited bits, and evicts the first unvisited node it finds, wrapping
// back to the tail if it falls off the head.
func (e *engine[K, V]) evictOne() {
	hand := e.hand
	if hand == nil {
		hand = e.l.Tail()
	}
	for hand != nil {
		if !hand.visited {
			prev := hand.Prev()
			k, v := e.detach(hand)
			e.hand = prev
			if e.onEvict != nil {
				e.onEvict(k, v)
			}
			return
		}
		hand.visited = false
		hand = hand.Prev()
		if hand == nil {
			hand = e.l.Tail()
		}
	}
	e.hand = hand
}
