// Package arena models the allocator collaborator as an out-of-scope
// concern: Go has no recoverable allocation-failure signal for make/new,
// so Allocator is a reservation gate consulted before the pool and the
// hash table grow their backing storage.
package arena

import "errors"

// ErrBudgetExceeded is returned by BudgetAllocator.Reserve when the
// requested reservation would exceed the configured byte budget.
var ErrBudgetExceeded = errors.New("arena: allocation budget exceeded")

// Allocator gates a byte-sized reservation before a caller commits to it.
type Allocator interface {
	Reserve(bytes int) error
}

// unbounded never fails; it is the default allocator used when Options
// does not configure one.
type unbounded struct{}

func (unbounded) Reserve(int) error { return nil }

// Default returns an Allocator that always succeeds.
func Default() Allocator { return unbounded{} }

// BudgetAllocator fails once cumulative reservations exceed Max bytes.
// It exists so tests can exercise cache.ErrAllocationFailed
// deterministically instead of needing to exhaust real memory.
type BudgetAllocator struct {
	Max  int64
	used int64
}

// NewBudgetAllocator returns an Allocator that fails Reserve once
// cumulative reservations would exceed maxBytes.
func NewBudgetAllocator(maxBytes int64) *BudgetAllocator {
	return &BudgetAllocator{Max: maxBytes}
}

// Reserve records bytes against the budget, failing if it would overflow.
func (b *BudgetAllocator) Reserve(bytes int) error {
	next := b.used + int64(bytes)
	if next > b.Max {
		return ErrBudgetExceeded
	}
	b.used = next
	return nil
}
