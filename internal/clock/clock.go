// Package clock provides the millisecond time source shared by the sensor
// providers, the sample log and the gesture detector.
package clock

import (
	"sync"
	"time"
)

// Clock returns monotonic milliseconds.
type Clock interface {
	NowMillis() int64
}

// Monotonic counts milliseconds since it was created. It reads the monotonic
// reading carried by time.Time, so wall-clock jumps do not affect it.
type Monotonic struct {
	start time.Time
}

// NewMonotonic creates a Monotonic clock starting at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// NowMillis returns milliseconds elapsed since the clock was created.
func (m *Monotonic) NowMillis() int64 {
	return time.Since(m.start).Milliseconds()
}

// Manual is a manually driven clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now int64
}

// NewManual creates a Manual clock set to the given millisecond value.
func NewManual(ms int64) *Manual {
	return &Manual{now: ms}
}

// NowMillis returns the current manual time.
func (m *Manual) NowMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to ms.
func (m *Manual) Set(ms int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = ms
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d.Milliseconds()
}
