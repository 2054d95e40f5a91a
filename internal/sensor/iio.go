package sensor

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"proxigesture.klederson.com/internal/clock"
)

// iioChannels lists the sysfs attributes read for each modality, in value
// order. The first readable variant of each attribute wins.
var iioChannels = map[Modality][][]string{
	ModalityProximity: {{"in_distance_input", "in_distance_raw"}},
	ModalityLight:     {{"in_illuminance_input", "in_illuminance_raw"}},
	ModalityMotion: {
		{"in_accel_x_raw"},
		{"in_accel_y_raw"},
		{"in_accel_z_raw"},
	},
}

var iioScales = map[Modality]string{
	ModalityProximity: "in_distance_scale",
	ModalityLight:     "in_illuminance_scale",
	ModalityMotion:    "in_accel_scale",
}

// IIOProvider polls a Linux Industrial I/O device through sysfs. Distances are
// reported in centimetres, light in lux and acceleration in m/s^2.
type IIOProvider struct {
	root     string
	modality Modality
	clock    clock.Clock
	interval time.Duration
	maxRange float64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIIOProvider creates a provider for one modality under root
// (normally /sys/bus/iio/devices).
func NewIIOProvider(root string, m Modality, c clock.Clock, interval time.Duration, maxRange float64) *IIOProvider {
	return &IIOProvider{
		root:     root,
		modality: m,
		clock:    c,
		interval: interval,
		maxRange: maxRange,
	}
}

func (p *IIOProvider) Name() string       { return "iio-" + p.modality.String() }
func (p *IIOProvider) Modality() Modality { return p.modality }
func (p *IIOProvider) MaxRange() float64  { return p.maxRange }

// Available reports whether a device exposing the modality's channels exists.
func (p *IIOProvider) Available() bool {
	_, _, err := p.locate()
	return err == nil
}

// iioChannel is one resolved attribute path.
type iioChannel struct {
	path string
}

// locate finds the first device directory that has every channel readable.
func (p *IIOProvider) locate() (string, []iioChannel, error) {
	wanted, ok := iioChannels[p.modality]
	if !ok {
		return "", nil, fmt.Errorf("iio: unsupported modality %s", p.modality)
	}

	devices, err := filepath.Glob(filepath.Join(p.root, "iio:device*"))
	if err != nil {
		return "", nil, err
	}
	sort.Strings(devices)

	for _, dev := range devices {
		chans := make([]iioChannel, 0, len(wanted))
		for _, variants := range wanted {
			for _, attr := range variants {
				path := filepath.Join(dev, attr)
				if unix.Access(path, unix.R_OK) == nil {
					chans = append(chans, iioChannel{path: path})
					break
				}
			}
		}
		if len(chans) == len(wanted) {
			return dev, chans, nil
		}
	}
	return "", nil, fmt.Errorf("iio: no %s device under %s", p.modality, p.root)
}

// Start resolves the device and begins polling it.
func (p *IIOProvider) Start(ctx context.Context, emit func(Sample)) error {
	dev, chans, err := p.locate()
	if err != nil {
		return err
	}
	// *_input attributes are already scaled.
	scale := 1.0
	if !strings.HasSuffix(chans[0].path, "_input") {
		if raw, err := readFloat(filepath.Join(dev, iioScales[p.modality])); err == nil && raw > 0 {
			scale = raw
		}
	}
	if p.modality == ModalityProximity {
		scale *= 100 // metres to centimetres
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, chans, scale, emit, p.done)
	return nil
}

func (p *IIOProvider) loop(ctx context.Context, chans []iioChannel, scale float64, emit func(Sample), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			values := make([]float64, len(chans))
			for i, ch := range chans {
				v, err := readFloat(ch.path)
				if err != nil {
					// Surfaces downstream as a malformed sample.
					v = math.NaN()
				}
				values[i] = v * scale
			}
			emit(Sample{Timestamp: p.clock.NowMillis(), Values: values})
		}
	}
}

// Stop halts polling and waits for the goroutine.
func (p *IIOProvider) Stop() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func readFloat(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
}
