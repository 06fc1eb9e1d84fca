// Package clock provides the monotonic millisecond time source treated
// as an out-of-scope collaborator: the core never calls time.Now
// directly, so tests can substitute a deterministic source.
package clock

import "time"

// Clock returns milliseconds since an arbitrary monotonic epoch.
type Clock interface {
	NowMillis() int64
}

// Monotonic is the default Clock, backed by time.Since against a
// package-level start time. time.Time retains a monotonic reading
// internally, so this is immune to wall-clock adjustments.
type Monotonic struct{}

var start = time.Now()

// NowMillis returns milliseconds elapsed since package initialization.
func (Monotonic) NowMillis() int64 {
	return time.Since(start).Milliseconds()
}
