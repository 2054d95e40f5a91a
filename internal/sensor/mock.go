package sensor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"proxigesture.klederson.com/internal/clock"
)

// mockCycle is one scripted burst of hand passes. Offsets are from the start
// of the cycle; a pass lasts passLen.
type mockCycle struct {
	length time.Duration
	passes []time.Duration
}

var mockCycles = []mockCycle{
	// Three quick passes: a gesture.
	{length: 6 * time.Second, passes: []time.Duration{1000 * time.Millisecond, 1500 * time.Millisecond, 2000 * time.Millisecond}},
	// A single stray pass: noise.
	{length: 4 * time.Second, passes: []time.Duration{1500 * time.Millisecond}},
	// Two passes, then a third too late for the window.
	{length: 7 * time.Second, passes: []time.Duration{500 * time.Millisecond, 1200 * time.Millisecond, 4500 * time.Millisecond}},
}

const passLen = 250 * time.Millisecond

// MockProvider generates synthetic hand passes for demo mode.
type MockProvider struct {
	modality Modality
	clock    clock.Clock
	interval time.Duration
	maxRange float64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMockProvider creates a demo provider of the given modality.
func NewMockProvider(m Modality, c clock.Clock, interval time.Duration, maxRange float64) *MockProvider {
	return &MockProvider{
		modality: m,
		clock:    c,
		interval: interval,
		maxRange: maxRange,
	}
}

func (s *MockProvider) Name() string       { return "demo-" + s.modality.String() }
func (s *MockProvider) Modality() Modality { return s.modality }
func (s *MockProvider) Available() bool    { return s.modality != ModalityNone }
func (s *MockProvider) MaxRange() float64  { return s.maxRange }

// Start begins the mock provider.
func (s *MockProvider) Start(ctx context.Context, emit func(Sample)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, emit, s.done)
	return nil
}

func (s *MockProvider) loop(ctx context.Context, emit func(Sample), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var elapsed time.Duration
	cycle := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed += s.interval
			c := mockCycles[cycle%len(mockCycles)]
			if elapsed >= c.length {
				elapsed = 0
				cycle++
				c = mockCycles[cycle%len(mockCycles)]
			}
			emit(Sample{
				Timestamp: s.clock.NowMillis(),
				Values:    s.values(inPass(c, elapsed)),
			})
		}
	}
}

func inPass(c mockCycle, at time.Duration) bool {
	for _, p := range c.passes {
		if at >= p && at < p+passLen {
			return true
		}
	}
	return false
}

// values produces one raw sample with realistic noise.
func (s *MockProvider) values(near bool) []float64 {
	noise := (rand.Float64() - 0.5)
	switch s.modality {
	case ModalityLight:
		if near {
			return []float64{2 + math.Abs(noise)*4}
		}
		return []float64{180 + noise*30}
	case ModalityMotion:
		if near {
			return []float64{8 + noise*2, 6 + noise*2, 9.81 + noise}
		}
		return []float64{noise * 0.4, noise * 0.4, 9.81 + noise*0.2}
	default:
		if near {
			return []float64{0.5 + math.Abs(noise)}
		}
		return []float64{math.Max(0, s.maxRange-1+noise*0.6)}
	}
}

// Stop halts the mock provider and waits for its goroutine.
func (s *MockProvider) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
