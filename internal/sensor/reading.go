// Package sensor turns raw callbacks from whichever physical sensor is live
// into the shared near/far Reading model.
package sensor

import (
	"fmt"
	"strings"
)

// Reading is one normalized sensor observation.
type Reading struct {
	Timestamp int64   `json:"timestamp"` // monotonic milliseconds
	Distance  float64 `json:"distance"`  // estimated distance or proxy value
	IsNear    bool    `json:"is_near"`
}

// Sample is a raw provider callback: one value for distance and light
// sensors, three (x, y, z) for motion sensors.
type Sample struct {
	Timestamp int64
	Values    []float64
}

// Modality identifies which physical sensor drives observations.
type Modality int

const (
	ModalityNone Modality = iota
	ModalityProximity
	ModalityLight
	ModalityMotion
)

// Priority is the fixed probing order used by the Selector.
var Priority = []Modality{ModalityProximity, ModalityLight, ModalityMotion}

func (m Modality) String() string {
	switch m {
	case ModalityProximity:
		return "proximity"
	case ModalityLight:
		return "light"
	case ModalityMotion:
		return "motion"
	default:
		return "none"
	}
}

func (m Modality) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ParseModality converts a configuration name into a Modality.
func ParseModality(s string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "proximity", "distance":
		return ModalityProximity, nil
	case "light", "als":
		return ModalityLight, nil
	case "motion", "accel", "accelerometer":
		return ModalityMotion, nil
	default:
		return ModalityNone, fmt.Errorf("unknown modality %q: expected proximity, light, or motion", s)
	}
}
