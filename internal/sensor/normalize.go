package sensor

import (
	"fmt"
	"math"
)

// Fixed per-modality thresholds, in each sensor's native unit.
const (
	NearDistance   = 3.0  // distance sensor: closer than this is near
	DarkLux        = 10.0 // light sensor: darker than this means the sensor is covered
	ShakeThreshold = 10.0 // motion sensor: acceleration magnitude that counts as a pass

	// Two-level distance proxy for sensors that do not measure distance.
	ProxyNear = 1.0
	ProxyFar  = 5.0

	LightMaxRange  = 5.0
	MotionMaxRange = 10.0
)

// Observation is a normalized Reading plus the scalar the detector uses for
// its significance filter (distance, lux or acceleration magnitude).
type Observation struct {
	Reading Reading
	Raw     float64
}

// Normalizer maps a raw Sample to an Observation. It returns false for
// malformed samples, which callers drop.
type Normalizer func(Sample) (Observation, bool)

// NormalizerFor returns the normalization function for m.
func NormalizerFor(m Modality) (Normalizer, error) {
	switch m {
	case ModalityProximity:
		return normalizeProximity, nil
	case ModalityLight:
		return normalizeLight, nil
	case ModalityMotion:
		return normalizeMotion, nil
	default:
		return nil, fmt.Errorf("no normalizer for modality %s", m)
	}
}

// MaxRange returns the display scale for m. providerMax is only used for
// distance sensors, which report their own range.
func MaxRange(m Modality, providerMax float64) float64 {
	switch m {
	case ModalityProximity:
		return providerMax
	case ModalityLight:
		return LightMaxRange
	case ModalityMotion:
		return MotionMaxRange
	default:
		return 0
	}
}

// NearLine returns where the near threshold falls on the distance axis.
// Proxy modalities are drawn halfway between their two levels.
func NearLine(m Modality) float64 {
	if m == ModalityProximity {
		return NearDistance
	}
	return (ProxyNear + ProxyFar) / 2
}

func normalizeProximity(s Sample) (Observation, bool) {
	if len(s.Values) != 1 {
		return Observation{}, false
	}
	d := s.Values[0]
	if !finite(d) || d < 0 {
		return Observation{}, false
	}
	return Observation{
		Reading: Reading{Timestamp: s.Timestamp, Distance: d, IsNear: d < NearDistance},
		Raw:     d,
	}, true
}

func normalizeLight(s Sample) (Observation, bool) {
	if len(s.Values) != 1 {
		return Observation{}, false
	}
	lux := s.Values[0]
	if !finite(lux) || lux < 0 {
		return Observation{}, false
	}
	near := lux < DarkLux
	return Observation{
		Reading: Reading{Timestamp: s.Timestamp, Distance: proxy(near), IsNear: near},
		Raw:     lux,
	}, true
}

func normalizeMotion(s Sample) (Observation, bool) {
	if len(s.Values) != 3 {
		return Observation{}, false
	}
	x, y, z := s.Values[0], s.Values[1], s.Values[2]
	if !finite(x) || !finite(y) || !finite(z) {
		return Observation{}, false
	}
	mag := math.Sqrt(x*x + y*y + z*z)
	near := mag > ShakeThreshold
	return Observation{
		Reading: Reading{Timestamp: s.Timestamp, Distance: proxy(near), IsNear: near},
		Raw:     mag,
	}, true
}

func proxy(near bool) float64 {
	if near {
		return ProxyNear
	}
	return ProxyFar
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
