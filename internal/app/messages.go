package app

import (
	"time"

	"proxigesture.klederson.com/internal/sensor"
)

// TickMsg triggers a redraw.
type TickMsg time.Time

// SessionStartedMsg reports the outcome of starting a monitoring session.
type SessionStartedMsg struct {
	Modality sensor.Modality
	Err      error
}

// SessionStoppedMsg is sent once a session has been stopped.
type SessionStoppedMsg struct{}
