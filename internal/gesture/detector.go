// Package gesture recognizes repeated hand passes over a sensor.
//
// The detector counts far-to-near transitions inside a rolling window. When
// enough of them land inside the window a Gesture fires, the pending history
// is cleared, and further passes are ignored until the cooldown has elapsed.
// All times are caller-supplied milliseconds; the detector starts no timers.
package gesture

import (
	"math"
	"time"
)

// Config holds construction-time parameters.
type Config struct {
	// SignificanceThreshold is the minimum raw delta, in the modality's unit,
	// that counts as a change.
	SignificanceThreshold float64
	Window                time.Duration
	RequiredEvents        int
	Cooldown              time.Duration
}

// State is the display state of the detector.
type State int

const (
	StateIdle State = iota
	StateAccumulating
)

func (s State) String() string {
	if s == StateAccumulating {
		return "accumulating"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Gesture is one detection.
type Gesture struct {
	At     int64   `json:"at"`     // timestamp of the completing pass
	Events []int64 `json:"events"` // passes that made up the gesture
	Seq    int     `json:"seq"`    // 1-based count since Reset
}

// Status is a point-in-time view of the detector for display.
type Status struct {
	State       State `json:"state"`
	Pending     int   `json:"pending"`
	Required    int   `json:"required"`
	InCooldown  bool  `json:"in_cooldown"`
	LastGesture int64 `json:"last_gesture,omitempty"`
	Fired       int   `json:"fired"`
	Near        bool  `json:"near"`
}

type nearState int

const (
	nearUnknown nearState = iota
	nearNo
	nearYes
)

func toNearState(isNear bool) nearState {
	if isNear {
		return nearYes
	}
	return nearNo
}

// Detector is not safe for concurrent use; callers serialize Observe.
type Detector struct {
	cfg      Config
	window   int64
	cooldown int64

	lastNear    nearState
	lastRaw     float64
	events      []int64
	lastGesture int64
	fired       int
}

// New creates a detector. RequiredEvents below one is treated as one.
func New(cfg Config) *Detector {
	if cfg.RequiredEvents < 1 {
		cfg.RequiredEvents = 1
	}
	return &Detector{
		cfg:      cfg,
		window:   cfg.Window.Milliseconds(),
		cooldown: cfg.Cooldown.Milliseconds(),
		events:   make([]int64, 0, cfg.RequiredEvents),
	}
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config {
	return d.cfg
}

// Reset clears pass history, cooldown and the last seen state.
func (d *Detector) Reset() {
	d.lastNear = nearUnknown
	d.lastRaw = 0
	d.events = d.events[:0]
	d.lastGesture = 0
	d.fired = 0
}

// Observe feeds one observation and reports whether it completed a gesture.
// Non-finite raw values are ignored.
func (d *Detector) Observe(ts int64, raw float64, isNear bool) (Gesture, bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Gesture{}, false
	}

	cur := toNearState(isNear)
	first := d.lastNear == nearUnknown
	significant := first ||
		math.Abs(raw-d.lastRaw) > d.cfg.SignificanceThreshold ||
		cur != d.lastNear
	farToNear := isNear && d.lastNear != nearYes

	defer func() {
		d.lastNear = cur
		d.lastRaw = raw
	}()

	d.prune(ts)
	if !significant || !farToNear || d.inCooldown(ts) {
		return Gesture{}, false
	}

	d.events = append(d.events, ts)
	if len(d.events) < d.cfg.RequiredEvents {
		return Gesture{}, false
	}

	d.fired++
	g := Gesture{
		At:     ts,
		Events: append([]int64(nil), d.events...),
		Seq:    d.fired,
	}
	d.lastGesture = ts
	d.events = d.events[:0]
	return g, true
}

// prune drops passes older than the window.
func (d *Detector) prune(now int64) {
	cutoff := now - d.window
	i := 0
	for i < len(d.events) && d.events[i] < cutoff {
		i++
	}
	if i > 0 {
		d.events = append(d.events[:0], d.events[i:]...)
	}
}

func (d *Detector) inCooldown(now int64) bool {
	return d.fired > 0 && now-d.lastGesture < d.cooldown
}

// Status reports the detector state as of now. It does not mutate the
// detector; passes older than the window are simply not counted.
func (d *Detector) Status(now int64) Status {
	pending := 0
	for _, e := range d.events {
		if e >= now-d.window {
			pending++
		}
	}
	s := Status{
		Pending:     pending,
		Required:    d.cfg.RequiredEvents,
		InCooldown:  d.inCooldown(now),
		LastGesture: d.lastGesture,
		Fired:       d.fired,
		Near:        d.lastNear == nearYes,
	}
	if pending > 0 {
		s.State = StateAccumulating
	}
	return s
}
