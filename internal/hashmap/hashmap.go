// Package hashmap implements an open-addressed hash table keyed by
// (K, precomputed hash) so callers that already hashed a key for
// sharding never pay for rehashing it.
//
// Linear probing with backward-shift deletion (no tombstones) keeps
// probe sequences short without needing periodic compaction.
package hashmap

import (
	"fmt"
	"unsafe"

	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/errs"
	"github.com/joeldasilva/polycache/internal/util"
)

// Map is a hash table from K to *N, pre-sized to a target capacity and
// addressed by a caller-supplied hash. It is not safe for concurrent use;
// policy engines always call it under their shard's lock.
type Map[K comparable, N any] struct {
	keys     []K
	hashes   []uint64
	nodes    []*N
	occupied []bool
	size     int
	mask     uint64
	alloc    arena.Allocator
}

const maxLoadFactorNum, maxLoadFactorDen = 3, 4 // 0.75

// New pre-sizes a table to comfortably hold capacityHint entries at the
// 0.75 max load factor, gated by alloc.Reserve.
func New[K comparable, N any](capacityHint int, alloc arena.Allocator) (*Map[K, N], error) {
	if capacityHint < 1 {
		capacityHint = 1
	}
	slots := util.NextPow2(uint64(capacityHint*4/3 + 1))
	if slots < 8 {
		slots = 8
	}
	m := &Map[K, N]{mask: slots - 1, alloc: alloc}
	if err := m.reserve(int(slots)); err != nil {
		return nil, err
	}
	m.keys = make([]K, slots)
	m.hashes = make([]uint64, slots)
	m.nodes = make([]*N, slots)
	m.occupied = make([]bool, slots)
	return m, nil
}

func (m *Map[K, N]) reserve(capacity int) error {
	var k K
	perSlot := int(unsafe.Sizeof(k)) + 8 /* hash */ + int(unsafe.Sizeof(uintptr(0))) /* *N */ + 1 /* occupied */
	if err := m.alloc.Reserve(capacity * perSlot); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrAllocationFailed, err)
	}
	return nil
}

// Len returns the number of resident entries.
func (m *Map[K, N]) Len() int { return m.size }

func (m *Map[K, N]) probe(k K, h uint64) (pos int, found bool) {
	slots := m.mask + 1
	start := h & m.mask
	for i := uint64(0); i < slots; i++ {
		p := (start + i) & m.mask
		if !m.occupied[p] {
			return int(p), false
		}
		if m.hashes[p] == h && m.keys[p] == k {
			return int(p), true
		}
	}
	return -1, false
}

// Get returns the node stored for k, if any.
func (m *Map[K, N]) Get(k K, h uint64) (*N, bool) {
	pos, found := m.probe(k, h)
	if !found {
		return nil, false
	}
	return m.nodes[pos], true
}

// Contains reports whether k is present, without otherwise touching it.
func (m *Map[K, N]) Contains(k K, h uint64) bool {
	_, found := m.probe(k, h)
	return found
}

// Set returns the existing node for k if present; otherwise it grows the
// table if needed, calls acquire to obtain a fresh node, installs it
// under k, and returns (node, false). acquire errors (allocation failure
// from the node pool) and table-growth failures both propagate here.
func (m *Map[K, N]) Set(k K, h uint64, acquire func() (*N, error)) (*N, bool, error) {
	if pos, found := m.probe(k, h); found {
		return m.nodes[pos], true, nil
	}
	if (m.size+1)*maxLoadFactorDen > int(m.mask+1)*maxLoadFactorNum {
		if err := m.grow(); err != nil {
			return nil, false, err
		}
	}
	pos, _ := m.probe(k, h) // re-probe: growth may have changed the slot
	n, err := acquire()
	if err != nil {
		return nil, false, err
	}
	m.keys[pos] = k
	m.hashes[pos] = h
	m.nodes[pos] = n
	m.occupied[pos] = true
	m.size++
	return n, false, nil
}

// Remove detaches k's node from the table and returns it, repairing probe
// sequences via backward-shift deletion so no tombstone is left behind.
func (m *Map[K, N]) Remove(k K, h uint64) (*N, bool) {
	pos, found := m.probe(k, h)
	if !found {
		return nil, false
	}
	n := m.nodes[pos]
	m.evict(pos)
	return n, true
}

func (m *Map[K, N]) evict(pos int) {
	var zk K
	m.occupied[pos] = false
	m.nodes[pos] = nil
	m.keys[pos] = zk
	m.hashes[pos] = 0
	m.size--

	slots := m.mask + 1
	j := uint64(pos)
	next := j
	for {
		next = (next + 1) & m.mask
		if !m.occupied[next] {
			return
		}
		ideal := m.hashes[next] & m.mask
		// next may move back into j iff j lies within next's probe run,
		// i.e. the cyclic distance from ideal to j is <= the cyclic
		// distance from ideal to next. An entry that cannot move stays
		// put and the scan continues past it.
		distJ := (j - ideal + slots) % slots
		distNext := (next - ideal + slots) % slots
		if distJ > distNext {
			continue
		}
		m.keys[j] = m.keys[next]
		m.hashes[j] = m.hashes[next]
		m.nodes[j] = m.nodes[next]
		m.occupied[j] = true
		m.occupied[next] = false
		m.nodes[next] = nil
		m.keys[next] = zk
		m.hashes[next] = 0
		j = next
	}
}

func (m *Map[K, N]) grow() error {
	newCap := (m.mask + 1) * 2
	if err := m.reserve(int(newCap)); err != nil {
		return err
	}
	old := *m
	m.keys = make([]K, newCap)
	m.hashes = make([]uint64, newCap)
	m.nodes = make([]*N, newCap)
	m.occupied = make([]bool, newCap)
	m.mask = newCap - 1
	m.size = 0
	for i, occ := range old.occupied {
		if !occ {
			continue
		}
		pos, _ := m.probe(old.keys[i], old.hashes[i])
		m.keys[pos] = old.keys[i]
		m.hashes[pos] = old.hashes[i]
		m.nodes[pos] = old.nodes[i]
		m.occupied[pos] = true
		m.size++
	}
	return nil
}
