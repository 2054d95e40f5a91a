package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"

	"proxigesture.klederson.com/internal/gesture"
)

const toneSampleRate = beep.SampleRate(44100)

var (
	speakerMu   sync.Mutex
	speakerInit bool
)

// playOnSpeaker initializes the speaker on first use and plays s.
func playOnSpeaker(s beep.Streamer) error {
	speakerMu.Lock()
	if !speakerInit {
		if err := speaker.Init(toneSampleRate, toneSampleRate.N(time.Second/10)); err != nil {
			speakerMu.Unlock()
			return fmt.Errorf("init speaker: %w", err)
		}
		speakerInit = true
	}
	speakerMu.Unlock()

	speaker.Play(s)
	return nil
}

// Tone plays a short sine pulse, the audible stand-in for a haptic buzz.
type Tone struct {
	duration  time.Duration
	frequency float64
	play      func(beep.Streamer) error
}

// NewTone creates a tone actuator.
func NewTone(duration time.Duration, frequency float64) *Tone {
	return &Tone{duration: duration, frequency: frequency, play: playOnSpeaker}
}

func (t *Tone) Name() string { return "tone" }

// Actuate plays the pulse and waits for it to finish or for ctx.
func (t *Tone) Actuate(ctx context.Context, _ gesture.Gesture) error {
	sine, err := generators.SineTone(toneSampleRate, t.frequency)
	if err != nil {
		return fmt.Errorf("tone generator: %w", err)
	}

	done := make(chan struct{})
	pulse := beep.Seq(
		beep.Take(toneSampleRate.N(t.duration), sine),
		beep.Callback(func() { close(done) }),
	)
	if err := t.play(pulse); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
