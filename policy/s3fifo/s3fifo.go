// Package s3fifo implements S3-FIFO: three FIFO queues (Small, Main,
// Ghost) with a saturating per-node frequency counter deciding whether an
// entry leaving Small is promoted to Main or demoted to Ghost, and
// whether an entry leaving Main gets a second chance instead of being
// released. Unlike the canonical paper, Ghost entries here keep their
// full value so a later Get can still report a hit while the key sits
// in the ghost region.
package s3fifo

import (
	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/clock"
	"github.com/joeldasilva/polycache/internal/hashmap"
	"github.com/joeldasilva/polycache/internal/list"
	"github.com/joeldasilva/polycache/internal/pool"
	"github.com/joeldasilva/polycache/policy"
)

type region uint8

const (
	regionSmall region = iota
	regionMain
	regionGhost
)

type node[K comparable, V any] struct {
	key        K
	val        V
	hash       uint64
	exp        int64
	freq       uint8
	region     region
	next, prev *node[K, V]
}

func (n *node[K, V]) Next() *node[K, V]     { return n.next }
func (n *node[K, V]) SetNext(m *node[K, V]) { n.next = m }
func (n *node[K, V]) Prev() *node[K, V]     { return n.prev }
func (n *node[K, V]) SetPrev(m *node[K, V]) { n.prev = m }

type engine[K comparable, V any] struct {
	m     *hashmap.Map[K, node[K, V]]
	small list.List[*node[K, V]]
	main  list.List[*node[K, V]]
	ghost list.List[*node[K, V]]
	pool  *pool.Pool[node[K, V]]

	sCap, mCap, gCap, total int

	onEvict policy.EvictedFunc[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Factory that builds S3-FIFO engines.
func New[K comparable, V any]() policy.Factory[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(capacity, poolSize int, _ clock.Clock, alloc arena.Allocator, onEvict policy.EvictedFunc[K, V]) (policy.Engine[K, V], error) {
	if capacity < 1 {
		capacity = 1
	}
	sCap := capacity / 10
	if sCap < 1 {
		sCap = 1
	}
	remaining := capacity - sCap
	half := remaining / 2
	if half < 1 {
		half = 1
	}
	mCap, gCap := half, half

	m, err := hashmap.New[K, node[K, V]](sCap+mCap+gCap, alloc)
	if err != nil {
		return nil, err
	}
	p, err := pool.New[node[K, V]](poolSize, alloc)
	if err != nil {
		return nil, err
	}
	return &engine[K, V]{
		m: m, pool: p,
		sCap: sCap, mCap: mCap, gCap: gCap, total: sCap + mCap + gCap,
		onEvict: onEvict,
	}, nil
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
	if n.region != regionGhost && n.freq < 3 {
		n.freq++
	}
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
		if n.region == regionGhost {
			e.ghost.Remove(n)
			n.region = regionMain
			e.main.Append(n)
		} else if n.freq < 3 {
			n.freq++
		}
		return nil
	}
	for e.small.Len()+e.main.Len()+e.ghost.Len() >= e.total {
		e.evictOnce()
	}
	n.key, n.hash, n.val, n.exp, n.freq, n.region = k, h, v, exp, 0, regionSmall
	e.small.Append(n)
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

func (e *engine[K, V]) listFor(r region) *list.List[*node[K, V]] {
	switch r {
	case regionSmall:
		return &e.small
	case regionMain:
		return &e.main
	default:
		return &e.ghost
	}
}

// detach removes n from whichever list currently holds it, then releases
// it from the Map and the pool.
func (e *engine[K, V]) detach(n *node[K, V]) (K, V) {
	e.listFor(n.region).Remove(n)
	return e.releaseNode(n)
}

// releaseNode frees an already-unlinked node from the Map and the pool.
func (e *engine[K, V]) releaseNode(n *node[K, V]) (K, V) {
	e.m.Remove(n.key, n.hash)
	k, v := n.key, n.val
	e.pool.Release(n)
	return k, v
}

func (e *engine[K, V]) evictOnce() {
	if e.small.Len() >= e.sCap {
		e.evictFromSmall()
		return
	}
	e.evictFromMain()
}

// evictFromSmall pops Small's head and either promotes it to Main (if it
// was touched while resident) or demotes it into Ghost, making room in
// Ghost first if necessary. Exactly one promotion-or-demotion happens per
// call.
func (e *engine[K, V]) evictFromSmall() {
	n := e.small.PopFirst()
	if n == nil {
		return
	}
	if n.freq > 0 {
		n.freq = 0
		n.region = regionMain
		e.main.Append(n)
		return
	}
	if e.ghost.Len() >= e.gCap {
		if victim := e.ghost.PopFirst(); victim != nil {
			k, v := e.releaseNode(victim)
			if e.onEvict != nil {
				e.onEvict(k, v)
			}
		}
	}
	n.region = regionGhost
	e.ghost.Append(n)
}

// evictFromMain pops Main's head repeatedly, giving each frequent node a
// second chance at the tail, until one node with freq==0 is fully
// released.
func (e *engine[K, V]) evictFromMain() {
	for {
		n := e.main.PopFirst()
		if n == nil {
			return
		}
		if n.freq > 0 {
			n.freq--
			e.main.Append(n)
			continue
		}
		k, v := e.releaseNode(n)
		if e.onEvict != nil {
			e.onEvict(k, v)
		}
		return
	}
}
