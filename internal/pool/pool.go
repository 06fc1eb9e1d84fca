// Package pool implements a bounded, preallocated node reservoir: a
// backing store of poolSize nodes plus a free list. Acquire pops the
// free list (heap-allocating past it); Release returns to the free list
// while under capacity, else drops the node for the garbage collector to
// reclaim.
package pool

import (
	"fmt"
	"unsafe"

	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/errs"
)

// Pool recycles *T values. It is not safe for concurrent use; callers
// (policy engines) are always invoked under their shard's lock.
type Pool[T any] struct {
	free []*T
	cap  int
}

// New preallocates poolSize nodes up front, gated by alloc.Reserve so
// construction can surface cache.ErrAllocationFailed deterministically.
func New[T any](poolSize int, alloc arena.Allocator) (*Pool[T], error) {
	if poolSize < 0 {
		poolSize = 0
	}
	var sample T
	if err := alloc.Reserve(poolSize * int(unsafe.Sizeof(sample))); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrAllocationFailed, err)
	}
	p := &Pool[T]{free: make([]*T, poolSize), cap: poolSize}
	for i := range p.free {
		p.free[i] = new(T)
	}
	return p, nil
}

// Acquire returns a node from the free list, or heap-allocates a fresh one
// once the free list is exhausted.
func (p *Pool[T]) Acquire() *T {
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return v
	}
	return new(T)
}

// Release returns v to the free list if there is room, else lets it be
// collected. The caller must have already unlinked v from every list and
// removed it from the Map.
func (p *Pool[T]) Release(v *T) {
	if len(p.free) < p.cap {
		var zero T
		*v = zero
		p.free = append(p.free, v)
	}
}
