package sensor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"proxigesture.klederson.com/internal/clock"
)

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr string
	}{
		{name: "defaults", in: PortOptions{}, want: PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"}},
		{name: "even long form", in: PortOptions{BaudRate: 115200, Parity: "even"}, want: PortOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "E"}},
		{name: "bad data bits", in: PortOptions{DataBits: 9}, wantErr: "invalid data bits"},
		{name: "bad stop bits", in: PortOptions{StopBits: 3}, wantErr: "invalid stop bits"},
		{name: "bad parity", in: PortOptions{Parity: "mark"}, wantErr: "unsupported parity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 57600, StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 57600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.OddParity, mode.Parity)
}

func TestParseSerialLine(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"dist: 42 cm", 42, true},
		{"a=1,b=2.25", 2.25, true},
		{"  7\r", 7, true},
		{"", 0, false},
		{"hello", 0, false},
		{"NaN", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseSerialLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestSerialProvider_ReadsLines(t *testing.T) {
	r, w := io.Pipe()
	var gotPath string
	p := NewSerialProvider("/dev/ttyUSB0", PortOptions{}, clock.NewManual(7), 200).
		WithOpener(func(path string, mode *serial.Mode) (io.ReadCloser, error) {
			gotPath = path
			return r, nil
		})
	require.True(t, p.Available())
	assert.Equal(t, ModalityProximity, p.Modality())

	var mu sync.Mutex
	var got []Sample
	require.NoError(t, p.Start(context.Background(), func(s Sample) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	}))
	assert.Equal(t, "/dev/ttyUSB0", gotPath)

	go func() {
		_, _ = io.WriteString(w, "boot ok\n12.5\ndist: 2 cm\n")
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 2*time.Millisecond)
	require.NoError(t, p.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Sample{
		{Timestamp: 7, Values: []float64{12.5}},
		{Timestamp: 7, Values: []float64{2}},
	}, got)
}

func TestSerialProvider_StopsOnContextCancel(t *testing.T) {
	r, _ := io.Pipe()
	p := NewSerialProvider("/dev/ttyACM0", PortOptions{}, clock.NewManual(0), 200).
		WithOpener(func(string, *serial.Mode) (io.ReadCloser, error) { return r, nil })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx, func(Sample) {}))
	cancel()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.port == nil
	}, time.Second, 2*time.Millisecond)
	assert.NoError(t, p.Stop())
}

func TestSerialProvider_OpenError(t *testing.T) {
	p := NewSerialProvider("/dev/missing", PortOptions{}, clock.NewManual(0), 200).
		WithOpener(func(string, *serial.Mode) (io.ReadCloser, error) { return nil, errors.New("no such file") })
	err := p.Start(context.Background(), func(Sample) {})
	assert.ErrorContains(t, err, "open /dev/missing: no such file")

	assert.False(t, NewSerialProvider("", PortOptions{}, clock.NewManual(0), 200).Available())
}
