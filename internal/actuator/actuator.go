// Package actuator reacts to detected gestures: a short tone, a spoken
// message, and optional MQTT or Kafka notifications.
package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"proxigesture.klederson.com/internal/gesture"
)

// Actuator performs one reaction to a gesture.
type Actuator interface {
	Name() string
	Actuate(ctx context.Context, g gesture.Gesture) error
}

// Func adapts a function to the Actuator interface.
type Func struct {
	ID string
	Fn func(ctx context.Context, g gesture.Gesture) error
}

func (f Func) Name() string { return f.ID }

func (f Func) Actuate(ctx context.Context, g gesture.Gesture) error {
	return f.Fn(ctx, g)
}

// Dispatcher fans a gesture out to every actuator. Dispatch never blocks and
// never reports errors to the caller; failures are logged and passed to
// OnFailure.
type Dispatcher struct {
	actuators []Actuator
	timeout   time.Duration
	logger    *slog.Logger

	// OnFailure, when set, is called from the actuator's goroutine.
	OnFailure func(name string, err error)
	// OnSuccess, when set, is called from the actuator's goroutine.
	OnSuccess func(name string)

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a per-actuator timeout.
func NewDispatcher(logger *slog.Logger, timeout time.Duration, actuators ...Actuator) *Dispatcher {
	return &Dispatcher{
		actuators: actuators,
		timeout:   timeout,
		logger:    logger,
	}
}

// Names lists the configured actuators.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.actuators))
	for i, a := range d.actuators {
		names[i] = a.Name()
	}
	return names
}

// Dispatch starts every actuator in its own goroutine and returns at once.
func (d *Dispatcher) Dispatch(g gesture.Gesture) {
	for _, a := range d.actuators {
		d.wg.Add(1)
		go d.run(a, g)
	}
}

func (d *Dispatcher) run(a Actuator, g gesture.Gesture) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := safeActuate(ctx, a, g)
	if err != nil {
		d.logger.Warn("actuator failed", "actuator", a.Name(), "seq", g.Seq, "error", err)
		if d.OnFailure != nil {
			d.OnFailure(a.Name(), err)
		}
		return
	}
	d.logger.Debug("actuator done", "actuator", a.Name(), "seq", g.Seq)
	if d.OnSuccess != nil {
		d.OnSuccess(a.Name())
	}
}

// safeActuate turns a panicking actuator into an error.
func safeActuate(ctx context.Context, a Actuator, g gesture.Gesture) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return a.Actuate(ctx, g)
}

// Wait blocks until every dispatched actuator has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
