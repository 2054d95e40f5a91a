// Package monitor runs a monitoring session: it starts the selected sensor,
// feeds every reading into the sample log and the gesture detector from a
// single goroutine, and fans results out to actuators and listeners.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"proxigesture.klederson.com/internal/actuator"
	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/samplelog"
	"proxigesture.klederson.com/internal/sensor"
)

// ErrAlreadyRunning is returned by Start while a session is active.
var ErrAlreadyRunning = errors.New("monitoring already running")

// Options wires a Monitor. Selector, Log and Clock are required.
type Options struct {
	Selector *sensor.Selector
	Log      *samplelog.Log
	Clock    clock.Clock
	// Detector is the detector configuration; its SignificanceThreshold is
	// replaced by Significance for the selected modality.
	Detector     gesture.Config
	Significance map[sensor.Modality]float64
	Dispatcher   *actuator.Dispatcher
	Metrics      *Metrics
	Logger       *slog.Logger
	QueueSize    int
}

// Status is a snapshot of the monitor for display.
type Status struct {
	Running     bool             `json:"running"`
	Session     string           `json:"session,omitempty"`
	Modality    sensor.Modality  `json:"modality"`
	Provider    string           `json:"provider,omitempty"`
	MaxRange    float64          `json:"max_range"`
	Detector    gesture.Status   `json:"detector"`
	Samples     int              `json:"samples"`
	Malformed   int              `json:"malformed"`
	Dropped     int              `json:"dropped"`
	Gestures    int              `json:"gestures"`
	LastGesture *gesture.Gesture `json:"last_gesture,omitempty"`
}

// Monitor owns one monitoring session at a time.
type Monitor struct {
	opts      Options
	logger    *slog.Logger
	listeners []Listener

	mu       sync.Mutex // guards the session lifecycle
	running  bool
	provider sensor.Provider
	cancel   context.CancelFunc
	done     chan struct{}

	statMu sync.RWMutex
	status Status
}

// New creates an idle monitor.
func New(opts Options) *Monitor {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{opts: opts, logger: logger}
}

// AddListener registers l for session events. Listeners must be added before
// Start and must not call Start or Stop.
func (m *Monitor) AddListener(l Listener) {
	m.listeners = append(m.listeners, l)
}

// Log returns the sample log.
func (m *Monitor) Log() *samplelog.Log {
	return m.opts.Log
}

// Status returns the latest snapshot.
func (m *Monitor) Status() Status {
	m.statMu.RLock()
	defer m.statMu.RUnlock()
	s := m.status
	if s.LastGesture != nil {
		g := *s.LastGesture
		s.LastGesture = &g
	}
	return s
}

// Running reports whether a session is active.
func (m *Monitor) Running() bool {
	m.statMu.RLock()
	defer m.statMu.RUnlock()
	return m.status.Running
}

// Start selects a sensor and begins a new session. The sample log is cleared
// and the detector reset. It returns sensor.ErrNoSensorAvailable when no
// provider could be started.
func (m *Monitor) Start(ctx context.Context) (sensor.Modality, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return sensor.ModalityNone, ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	samples := make(chan sensor.Sample, m.opts.QueueSize)
	emit := func(s sensor.Sample) {
		select {
		case <-ctx.Done():
		case samples <- s:
		default:
			m.countDropped()
		}
	}

	p, err := m.opts.Selector.SelectAndStart(ctx, emit)
	if err != nil {
		cancel()
		return sensor.ModalityNone, err
	}
	modality := p.Modality()
	norm, err := sensor.NormalizerFor(modality)
	if err != nil {
		_ = p.Stop()
		cancel()
		return sensor.ModalityNone, fmt.Errorf("provider %s: %w", p.Name(), err)
	}

	cfg := m.opts.Detector
	cfg.SignificanceThreshold = m.opts.Significance[modality]
	det := gesture.New(cfg)
	det.Reset()
	m.opts.Log.Clear()

	started := StartedEvent{
		Session:  uuid.New().String(),
		Modality: modality,
		Provider: p.Name(),
		MaxRange: sensor.MaxRange(modality, p.MaxRange()),
	}

	m.statMu.Lock()
	m.status = Status{
		Running:  true,
		Session:  started.Session,
		Modality: modality,
		Provider: started.Provider,
		MaxRange: started.MaxRange,
		Detector: det.Status(m.opts.Clock.NowMillis()),
	}
	m.statMu.Unlock()

	m.running = true
	m.provider = p
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.Info("monitoring started",
		"session", started.Session,
		"modality", modality,
		"provider", started.Provider,
		"max_range", started.MaxRange)
	m.opts.Metrics.session(true)

	s := &session{
		Monitor:  m,
		id:       started.Session,
		modality: modality,
		norm:     norm,
		detector: det,
	}
	go s.run(ctx, samples, m.done, started)
	return modality, nil
}

// Stop ends the session and waits for the dispatch goroutine. Samples still
// queued are abandoned. It is safe to call when not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	p := m.provider
	if err := p.Stop(); err != nil {
		m.logger.Warn("sensor stop failed", "provider", p.Name(), "error", err)
	}
	m.cancel()
	<-m.done

	m.running = false
	m.provider = nil
	m.cancel = nil

	m.statMu.Lock()
	m.status.Running = false
	id := m.status.Session
	m.statMu.Unlock()
	m.mu.Unlock()

	m.opts.Metrics.session(false)
	m.logger.Info("monitoring stopped", "session", id)
	m.notify(StoppedEvent{Session: id})
}

// Close stops the session and waits for in-flight actuators.
func (m *Monitor) Close() {
	m.Stop()
	if m.opts.Dispatcher != nil {
		m.opts.Dispatcher.Wait()
	}
}

func (m *Monitor) notify(event any) {
	for _, l := range m.listeners {
		l(event)
	}
}

func (m *Monitor) countDropped() {
	m.statMu.Lock()
	m.status.Dropped++
	m.statMu.Unlock()
	m.opts.Metrics.dropped("queue_full")
}

// session is the state owned by one dispatch goroutine.
type session struct {
	*Monitor
	id       string
	modality sensor.Modality
	norm     sensor.Normalizer
	detector *gesture.Detector
}

func (s *session) run(ctx context.Context, samples <-chan sensor.Sample, done chan struct{}, started StartedEvent) {
	defer close(done)
	s.notify(started)

	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-samples:
			s.handle(sample)
		}
	}
}

func (s *session) handle(sample sensor.Sample) {
	obs, ok := s.norm(sample)
	if !ok {
		s.statMu.Lock()
		s.status.Malformed++
		s.statMu.Unlock()
		s.opts.Metrics.dropped("malformed")
		s.logger.Debug("malformed sample dropped", "values", sample.Values)
		return
	}

	r := obs.Reading
	s.opts.Log.Append(r)
	g, fired := s.detector.Observe(r.Timestamp, obs.Raw, r.IsNear)
	det := s.detector.Status(r.Timestamp)

	s.statMu.Lock()
	s.status.Samples++
	s.status.Detector = det
	if fired {
		s.status.Gestures++
		s.status.LastGesture = &g
	}
	s.statMu.Unlock()

	s.opts.Metrics.sample(s.modality.String())
	s.opts.Metrics.state(det.Pending, s.opts.Log.Count())
	s.notify(ReadingEvent{Session: s.id, Reading: r, Detector: det})

	if !fired {
		return
	}
	s.logger.Info("gesture detected", "session", s.id, "seq", g.Seq, "at", g.At, "events", len(g.Events))
	s.opts.Metrics.gesture()
	if s.opts.Dispatcher != nil {
		s.opts.Dispatcher.Dispatch(g)
	}
	s.notify(GestureEvent{Session: s.id, Gesture: g})
}
