package monitor

import (
	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/sensor"
)

// Listener receives session events. It is called from the session's dispatch
// goroutine and must not block for long.
type Listener func(event any)

// StartedEvent is sent once a provider is live.
type StartedEvent struct {
	Session  string          `json:"session"`
	Modality sensor.Modality `json:"modality"`
	Provider string          `json:"provider"`
	MaxRange float64         `json:"max_range"`
}

// StoppedEvent is sent when a session ends.
type StoppedEvent struct {
	Session string `json:"session"`
}

// ReadingEvent carries one accepted reading and the detector state after it.
type ReadingEvent struct {
	Session  string         `json:"session"`
	Reading  sensor.Reading `json:"reading"`
	Detector gesture.Status `json:"detector"`
}

// GestureEvent is sent for every detected gesture.
type GestureEvent struct {
	Session string          `json:"session"`
	Gesture gesture.Gesture `json:"gesture"`
}
