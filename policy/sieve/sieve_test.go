package sieve

import (
	"testing"

	"github.com/joeldasilva/polycache/internal/arena"
	"github.com/joeldasilva/polycache/internal/clock"
	"github.com/joeldasilva/polycache/policy"
)

func hashOf(k int) uint64 { return uint64(k)*2654435761 + 1 }

func newEngine(t *testing.T, capacity int) *engine[int, string] {
	t.Helper()
	f := New[int, string]()
	e, err := f.New(capacity, capacity, clock.Monotonic{}, arena.Default(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e.(*engine[int, string])
}

// With capacity 3, visiting the two oldest entries protects them: the hand
// walks from the tail, clears their visited bits on the first pass, and
// lands on the one unvisited (never touched) entry to evict.
func TestSIEVE_VisitedEntriesSurviveOneSweep(t *testing.T) {
	e := newEngine(t, 3)

	_ = e.Set(1, hashOf(1), "a", 0, 0)
	_ = e.Set(2, hashOf(2), "b", 0, 0)
	_ = e.Set(3, hashOf(3), "c", 0, 0)

	// Mark 1 and 2 visited; 3 stays unvisited.
	e.Get(1, hashOf(1), 0)
	e.Get(2, hashOf(2), 0)

	_ = e.Set(4, hashOf(4), "d", 0, 0) // triggers eviction

	if e.Contains(3, hashOf(3), 0) {
		t.Fatalf("3 should be evicted: it was never visited")
	}
	if !e.Contains(1, hashOf(1), 0) || !e.Contains(2, hashOf(2), 0) {
		t.Fatalf("1 and 2 should survive: their visited bit protected them")
	}
	if !e.Contains(4, hashOf(4), 0) {
		t.Fatalf("4 must be present")
	}
}

// A Get only sets the visited bit; it never reorders the list, unlike LRU.
func TestSIEVE_GetDoesNotReorder(t *testing.T) {
	e := newEngine(t, 8)

	_ = e.Set(1, hashOf(1), "a", 0, 0)
	_ = e.Set(2, hashOf(2), "b", 0, 0)

	e.Get(1, hashOf(1), 0)

	tail := e.l.Tail()
	if tail == nil || tail.key != 1 {
		t.Fatalf("tail should still be the first-inserted node (1), got %+v", tail)
	}
}

func TestSIEVE_HandPersistsAcrossEvictions(t *testing.T) {
	e := newEngine(t, 2)

	_ = e.Set(1, hashOf(1), "a", 0, 0)
	_ = e.Set(2, hashOf(2), "b", 0, 0)

	_ = e.Set(3, hashOf(3), "c", 0, 0) // evicts 1 (unvisited, oldest)
	if e.Contains(1, hashOf(1), 0) {
		t.Fatalf("1 should have been evicted")
	}

	_ = e.Set(4, hashOf(4), "d", 0, 0) // evicts 2 next, continuing from the hand
	if e.Contains(2, hashOf(2), 0) {
		t.Fatalf("2 should have been evicted")
	}
	if !e.Contains(3, hashOf(3), 0) || !e.Contains(4, hashOf(4), 0) {
		t.Fatalf("3 and 4 must survive")
	}
}

func TestSIEVE_TTLExpiry(t *testing.T) {
	e := newEngine(t, 4)

	_ = e.Set(1, hashOf(1), "a", 100, 0)
	if _, res := e.Get(1, hashOf(1), 200); res != policy.Expired {
		t.Fatalf("expected Expired, got %v", res)
	}
}
