package sensor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"

	"proxigesture.klederson.com/internal/clock"
)

// RSSIToDistance estimates distance in meters from RSSI using the log-distance
// path loss model: d = 10^((measuredPower - rssi) / (10 * n)).
func RSSIToDistance(rssi, measuredPower, pathLossExp float64) float64 {
	if rssi >= 0 {
		return 0.1
	}
	d := math.Pow(10, (measuredPower-rssi)/(10*pathLossExp))
	if d < 0.1 {
		return 0.1
	}
	return d
}

// rssiSmoother is an exponential moving average over RSSI.
type rssiSmoother struct {
	alpha float64
	value float64
	set   bool
}

func (s *rssiSmoother) add(rssi float64) float64 {
	if !s.set {
		s.value, s.set = rssi, true
		return s.value
	}
	s.value = s.value*(1-s.alpha) + rssi*s.alpha
	return s.value
}

// BLEOptions configures the beacon a BLEProvider follows.
type BLEOptions struct {
	Address       string
	MeasuredPower float64
	PathLossExp   float64
	Alpha         float64
	MaxRange      float64
}

// BLEProvider turns the signal strength of one BLE beacon, such as a ring or
// a phone held in the hand, into a distance in meters.
type BLEProvider struct {
	opts    BLEOptions
	clock   clock.Clock
	adapter *bluetooth.Adapter

	mu       sync.Mutex
	running  bool
	smoother rssiSmoother
}

// NewBLEProvider creates a provider on the default adapter.
func NewBLEProvider(opts BLEOptions, c clock.Clock) *BLEProvider {
	return &BLEProvider{
		opts:     opts,
		clock:    c,
		adapter:  bluetooth.DefaultAdapter,
		smoother: rssiSmoother{alpha: opts.Alpha},
	}
}

func (p *BLEProvider) Name() string       { return "ble:" + p.opts.Address }
func (p *BLEProvider) Modality() Modality { return ModalityProximity }
func (p *BLEProvider) MaxRange() float64  { return p.opts.MaxRange }

// Available reports whether a beacon address is configured.
func (p *BLEProvider) Available() bool {
	return p.opts.Address != ""
}

// Start enables the adapter and scans in a goroutine. Advertisements from
// other devices are ignored.
func (p *BLEProvider) Start(ctx context.Context, emit func(Sample)) error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}

	p.mu.Lock()
	p.running = true
	p.smoother = rssiSmoother{alpha: p.opts.Alpha}
	p.mu.Unlock()

	go func() {
		_ = p.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if !strings.EqualFold(result.Address.String(), p.opts.Address) {
				return
			}
			s, ok := p.observe(float64(result.RSSI))
			if ok {
				emit(s)
			}
		})
	}()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// observe smooths one RSSI value and converts it into a distance sample.
func (p *BLEProvider) observe(rssi float64) (Sample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return Sample{}, false
	}
	smoothed := p.smoother.add(rssi)
	d := RSSIToDistance(smoothed, p.opts.MeasuredPower, p.opts.PathLossExp)
	return Sample{Timestamp: p.clock.NowMillis(), Values: []float64{d}}, true
}

// Stop halts scanning.
func (p *BLEProvider) Stop() error {
	p.mu.Lock()
	wasRunning := p.running
	p.running = false
	p.mu.Unlock()

	if !wasRunning {
		return nil
	}
	return p.adapter.StopScan()
}
