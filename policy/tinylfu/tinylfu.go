// Package tinylfu implements Windowed TinyLFU: an admission window (W)
// feeding a segmented main cache split into Probationary (P) and
// Protected (T), with a Count-Min Sketch estimating long-term frequency
// to decide which candidate wins when a window victim competes for a
// slot in Probationary.
package tinylfu

import (
	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/clock"
	"github.com/joeldasilva/polycache/internal/hashmap"
	"github.com/joeldasilva/polycache/internal/list"
	"github.com/joeldasilva/polycache/internal/pool"
	"github.com/joeldasilva/polycache/internal/sketch"
	"github.com/joeldasilva/polycache/policy"
)

type region uint8

const (
	regionWindow region = iota
	regionProbationary
	regionProtected
)

type node[K comparable, V any] struct {
	key        K
	val        V
	hash       uint64
	exp        int64
	region     region
	next, prev *node[K, V]
}

func (n *node[K, V]) Next() *node[K, V]     { return n.next }
func (n *node[K, V]) SetNext(m *node[K, V]) { n.next = m }
func (n *node[K, V]) Prev() *node[K, V]     { return n.prev }
func (n *node[K, V]) SetPrev(m *node[K, V]) { n.prev = m }

type engine[K comparable, V any] struct {
	m            *hashmap.Map[K, node[K, V]]
	window       list.List[*node[K, V]]
	probationary list.List[*node[K, V]]
	protected    list.List[*node[K, V]]
	cms          *sketch.CMS
	pool         *pool.Pool[node[K, V]]

	wCap, pCap, tCap int

	onEvict policy.EvictedFunc[K, V]
}

type factory[K comparable, V any] struct{}

// New returns a Factory that builds W-TinyLFU engines.
func New[K comparable, V any]() policy.Factory[K, V] { return factory[K, V]{} }

func (factory[K, V]) New(capacity, poolSize int, _ clock.Clock, alloc arena.Allocator, onEvict policy.EvictedFunc[K, V]) (policy.Engine[K, V], error) {
	if capacity < 1 {
		capacity = 1
	}
	wCap := capacity / 100
	if wCap < 1 {
		wCap = 1
	}
	remaining := capacity - wCap
	tCap := remaining * 80 / 100
	if tCap < 1 {
		tCap = 1
	}
	pCap := remaining - tCap
	if pCap < 1 {
		pCap = 1
	}

	m, err := hashmap.New[K, node[K, V]](wCap+pCap+tCap, alloc)
	if err != nil {
		return nil, err
	}
	p, err := pool.New[node[K, V]](poolSize, alloc)
	if err != nil {
		return nil, err
	}
	return &engine[K, V]{
		m: m, pool: p, cms: sketch.New(capacity),
		wCap: wCap, pCap: pCap, tCap: tCap,
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
	e.cms.Increment(h)
	switch n.region {
	case regionWindow:
		e.window.MoveToBack(n)
	case regionProbationary:
		e.probationary.Remove(n)
		if e.protected.Len() >= e.tCap {
			if head := e.protected.Head(); head != nil {
				e.protected.Remove(head)
				head.region = regionProbationary
				e.probationary.Append(head)
			}
		}
		n.region = regionProtected
		e.protected.Append(n)
	case regionProtected:
		e.protected.MoveToBack(n)
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
		e.cms.Increment(h)
		switch n.region {
		case regionWindow:
			e.window.MoveToBack(n)
		case regionProbationary:
			e.probationary.MoveToBack(n)
		case regionProtected:
			e.protected.MoveToBack(n)
		}
		return nil
	}
	e.cms.Increment(h)
	n.key, n.hash, n.val, n.exp, n.region = k, h, v, exp, regionWindow
	e.window.Append(n)
	if e.window.Len() > e.wCap {
		if victim := e.window.PopFirst(); victim != nil {
			e.admitToMain(victim)
		}
	}
	return nil
}

// admitToMain decides whether a window victim joins Probationary or is
// discarded in favor of (or at the expense of) Probationary's current
// head, per each candidate's estimated frequency.
func (e *engine[K, V]) admitToMain(c *node[K, V]) {
	if e.probationary.Len() < e.pCap {
		c.region = regionProbationary
		e.probationary.Append(c)
		return
	}
	head := e.probationary.Head()
	if head == nil {
		c.region = regionProbationary
		e.probationary.Append(c)
		return
	}
	if e.cms.Estimate(head.hash) > e.cms.Estimate(c.hash) {
		k, v := e.releaseNode(c)
		if e.onEvict != nil {
			e.onEvict(k, v)
		}
		return
	}
	e.probationary.Remove(head)
	k, v := e.releaseNode(head)
	if e.onEvict != nil {
		e.onEvict(k, v)
	}
	c.region = regionProbationary
	e.probationary.Append(c)
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
	case regionWindow:
		return &e.window
	case regionProtected:
		return &e.protected
	default:
		return &e.probationary
	}
}

func (e *engine[K, V]) detach(n *node[K, V]) (K, V) {
	e.listFor(n.region).Remove(n)
	return e.releaseNode(n)
}

func (e *engine[K, V]) releaseNode(n *node[K, V]) (K, V) {
	e.m.Remove(n.key, n.hash)
	k, v := n.key, n.val
	e.pool.Release(n)
	return k, v
}
