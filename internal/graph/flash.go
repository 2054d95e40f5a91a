package graph

import "time"

// Flash tracks the fading gesture banner.
type Flash struct {
	Start    time.Time
	Duration time.Duration
}

// NewFlash creates an idle flash lasting d once triggered.
func NewFlash(d time.Duration) *Flash {
	return &Flash{Duration: d}
}

// Trigger restarts the flash at now.
func (f *Flash) Trigger(now time.Time) {
	f.Start = now
}

// Active reports whether the banner should still be shown.
func (f *Flash) Active(now time.Time) bool {
	return f.Intensity(now) > 0
}

// Intensity returns the banner brightness in [0, 1]: 1 when just triggered,
// falling linearly to 0 after Duration.
func (f *Flash) Intensity(now time.Time) float64 {
	if f.Start.IsZero() || f.Duration <= 0 {
		return 0
	}
	elapsed := now.Sub(f.Start)
	if elapsed < 0 || elapsed >= f.Duration {
		return 0
	}
	return 1 - float64(elapsed)/float64(f.Duration)
}
