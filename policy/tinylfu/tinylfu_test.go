package tinylfu

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

func TestTinyLFU_NewEntryStartsInWindow(t *testing.T) {
	e := newEngine(t, 200) // wCap=2, tCap≈158, pCap≈40

	_ = e.Set(1, hashOf(1), "a", 0, 0)

	n, ok := e.m.Get(1, hashOf(1))
	if !ok || n.region != regionWindow {
		t.Fatalf("new entry must start in Window, ok=%v region=%v", ok, n.region)
	}
}

// A Get on a Probationary entry can promote it to Protected once it is
// touched again, but a Set on an existing key never promotes — only
// recency-moves within its current region.
func TestTinyLFU_SetNeverPromotesOnlyGetDoes(t *testing.T) {
	e := newEngine(t, 200)

	_ = e.Set(1, hashOf(1), "a", 0, 0)
	// Force 1 out of Window into Probationary by filling Window past wCap.
	for i := 2; i <= 5; i++ {
		_ = e.Set(i, hashOf(i), "v", 0, 0)
	}
	n, ok := e.m.Get(1, hashOf(1))
	if !ok {
		t.Fatalf("1 must still be resident")
	}
	if n.region != regionProbationary {
		t.Fatalf("1 should have been admitted to Probationary, got %v", n.region)
	}

	// Set on 1 (existing key) must NOT promote it to Protected.
	if err := e.Set(1, hashOf(1), "a2", 0, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	n, _ = e.m.Get(1, hashOf(1))
	if n.region != regionProbationary {
		t.Fatalf("Set on existing key must not promote region, got %v", n.region)
	}

	// A Get, by contrast, does promote Probationary -> Protected.
	if _, res := e.Get(1, hashOf(1), 0); res != policy.Hit {
		t.Fatalf("expected hit")
	}
	n, _ = e.m.Get(1, hashOf(1))
	if n.region != regionProtected {
		t.Fatalf("Get on a Probationary entry must promote to Protected, got %v", n.region)
	}
}

func TestTinyLFU_TTLExpiry(t *testing.T) {
	e := newEngine(t, 200)

	_ = e.Set(1, hashOf(1), "a", 100, 0)
	if _, res := e.Get(1, hashOf(1), 200); res != policy.Expired {
		t.Fatalf("expected Expired, got %v", res)
	}
}

// admitToMain's frequency comparison: a window victim with a much higher
// estimated frequency than Probationary's current head should win the slot.
func TestTinyLFU_AdmissionFavorsHigherEstimatedFrequency(t *testing.T) {
	e := newEngine(t, 110) // wCap=1, remaining=109, tCap=87, pCap=22

	// Churn enough cold (never re-touched) keys through Window into
	// Probationary to fill it past capacity at least once.
	for i := 1; i <= 3*e.pCap; i++ {
		_ = e.Set(i, hashOf(i), "v", 0, 0)
	}

	hotKey := 9000
	// Bump hotKey's estimated frequency heavily before it ever enters the
	// cache, simulating a key that has been seen many times elsewhere.
	for i := 0; i < 20; i++ {
		e.cms.Increment(hashOf(hotKey))
	}
	_ = e.Set(hotKey, hashOf(hotKey), "hot", 0, 0)
	// hotKey is now in Window; force it out by inserting one more key.
	_ = e.Set(9001, hashOf(9001), "v", 0, 0)

	if !e.Contains(hotKey, hashOf(hotKey), 0) {
		t.Fatalf("hotKey with a much higher estimated frequency should have displaced a cold Probationary entry")
	}
}
