package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoSensorAvailable is returned when no provider could be started.
var ErrNoSensorAvailable = errors.New("no sensor available")

// Provider delivers raw samples from one physical sensor. Start must not
// block; samples are passed to emit from the provider's own goroutine until
// Stop is called or ctx is canceled.
type Provider interface {
	Name() string
	Modality() Modality
	// Available reports whether the sensor looks present. It must be cheap and
	// must not claim the hardware.
	Available() bool
	// MaxRange is the sensor-reported range; only distance sensors use it.
	MaxRange() float64
	Start(ctx context.Context, emit func(Sample)) error
	Stop() error
}

// Selector picks one provider per monitoring session by fixed modality
// priority: distance sensor, then light, then motion.
type Selector struct {
	providers []Provider
	logger    *slog.Logger
}

// NewSelector creates a selector over providers. Within a modality, providers
// are tried in the order given.
func NewSelector(logger *slog.Logger, providers ...Provider) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{providers: providers, logger: logger}
}

// Providers returns the registered providers.
func (s *Selector) Providers() []Provider {
	out := make([]Provider, len(s.providers))
	copy(out, s.providers)
	return out
}

// SelectAndStart starts the first available provider in priority order. A
// provider that reports itself available but fails to start is logged and
// skipped.
func (s *Selector) SelectAndStart(ctx context.Context, emit func(Sample)) (Provider, error) {
	var startErrs []error
	for _, m := range Priority {
		for _, p := range s.providers {
			if p.Modality() != m {
				continue
			}
			if !p.Available() {
				s.logger.Debug("sensor not available", "provider", p.Name(), "modality", m)
				continue
			}
			if err := p.Start(ctx, emit); err != nil {
				s.logger.Warn("sensor failed to start", "provider", p.Name(), "modality", m, "error", err)
				startErrs = append(startErrs, fmt.Errorf("%s: %w", p.Name(), err))
				continue
			}
			s.logger.Info("sensor selected", "provider", p.Name(), "modality", m)
			return p, nil
		}
	}
	if len(startErrs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoSensorAvailable, errors.Join(startErrs...))
	}
	return nil, ErrNoSensorAvailable
}
