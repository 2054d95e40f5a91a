package sensor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"

	"proxigesture.klederson.com/internal/clock"
)

// PortOptions describes how to open the serial line.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize validates the options and applies defaults for unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// SerialMode converts the options into the mode go.bug.st/serial expects.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// PortOpener opens a serial port. Tests replace it with an in-memory pipe.
type PortOpener func(path string, mode *serial.Mode) (io.ReadCloser, error)

func openSerial(path string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(path, mode)
}

// SerialProvider reads distances from a microcontroller that prints one
// reading per line, such as an Arduino driving an ultrasonic or ToF sensor.
// The last numeric token on each line is taken as the distance.
type SerialProvider struct {
	path     string
	opts     PortOptions
	clock    clock.Clock
	maxRange float64
	open     PortOpener

	mu   sync.Mutex
	port io.ReadCloser
	done chan struct{}
}

// NewSerialProvider creates a distance provider on the given port path.
func NewSerialProvider(path string, opts PortOptions, c clock.Clock, maxRange float64) *SerialProvider {
	return &SerialProvider{
		path:     path,
		opts:     opts,
		clock:    c,
		maxRange: maxRange,
		open:     openSerial,
	}
}

// WithOpener swaps the function used to open the port.
func (p *SerialProvider) WithOpener(open PortOpener) *SerialProvider {
	p.open = open
	return p
}

func (p *SerialProvider) Name() string       { return "serial:" + p.path }
func (p *SerialProvider) Modality() Modality { return ModalityProximity }
func (p *SerialProvider) MaxRange() float64  { return p.maxRange }

// Available reports whether a port path is configured. Whether the device is
// actually attached is only known once Start opens it.
func (p *SerialProvider) Available() bool {
	return p.path != ""
}

// Start opens the port and begins reading lines.
func (p *SerialProvider) Start(ctx context.Context, emit func(Sample)) error {
	mode, err := p.opts.SerialMode()
	if err != nil {
		return err
	}
	port, err := p.open(p.path, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.port = port
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.readLoop(port, emit, done)
	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-done:
		}
	}()
	return nil
}

func (p *SerialProvider) readLoop(port io.Reader, emit func(Sample), done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		v, ok := ParseSerialLine(scanner.Text())
		if !ok {
			continue
		}
		emit(Sample{Timestamp: p.clock.NowMillis(), Values: []float64{v}})
	}
}

// Stop closes the port, which unblocks the reader, and waits for it.
func (p *SerialProvider) Stop() error {
	p.mu.Lock()
	port, done := p.port, p.done
	p.port = nil
	p.mu.Unlock()

	if port == nil {
		return nil
	}
	err := port.Close()
	<-done
	return err
}

// ParseSerialLine extracts the last number on a line such as "dist: 12.5 cm"
// or "12.5". Blank lines and lines without a number are rejected.
func ParseSerialLine(line string) (float64, bool) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == ',' || r == ':' || r == '=' || r == ';'
	})
	for i := len(fields) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, true
		}
	}
	return 0, false
}
