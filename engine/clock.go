package engine

import "time"

// Clock supplies the current instant. All date math in the engine goes
// through an injected Clock so scoring and sweeps are testable at a fixed
// point in time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by the wall clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
