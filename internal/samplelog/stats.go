package samplelog

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"proxigesture.klederson.com/internal/sensor"
)

// Summary describes the distances currently held in the log.
type Summary struct {
	Count        int     `json:"count"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	NearFraction float64 `json:"near_fraction"`
	First        int64   `json:"first,omitempty"` // oldest timestamp
	Last         int64   `json:"last,omitempty"`  // newest timestamp
}

// Summary computes statistics over a snapshot of the log.
func (l *Log) Summary() Summary {
	return Summarize(l.All())
}

// Summarize computes statistics over readings. An empty input yields a zero
// Summary.
func Summarize(readings []sensor.Reading) Summary {
	if len(readings) == 0 {
		return Summary{}
	}

	dist := make([]float64, len(readings))
	near := 0
	for i, r := range readings {
		dist[i] = r.Distance
		if r.IsNear {
			near++
		}
	}

	s := Summary{
		Count:        len(readings),
		Min:          floats.Min(dist),
		Max:          floats.Max(dist),
		NearFraction: float64(near) / float64(len(readings)),
		First:        readings[0].Timestamp,
		Last:         readings[len(readings)-1].Timestamp,
	}
	if len(dist) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(dist, nil)
	} else {
		s.Mean = dist[0]
	}
	return s
}
