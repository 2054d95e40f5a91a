package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/config"
	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/sensor"
)

func providerNames(ps []sensor.Provider) []string {
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	return names
}

func TestBuildProviders_Demo(t *testing.T) {
	ps, err := buildProviders(config.DefaultConfig(), true, sensor.ModalityLight, clock.NewManual(0))
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, sensor.ModalityLight, ps[0].Modality())
	assert.Equal(t, "demo-light", ps[0].Name())
}

func TestBuildProviders_Configured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sensors.Serial.Port = "/dev/ttyUSB0"
	cfg.Sensors.MQTT.Broker = "tcp://localhost:1883"
	cfg.Sensors.MQTT.Topic = "sensors/hand"
	cfg.Sensors.MQTT.Modality = "light"
	cfg.Sensors.BLE.Address = "AA:BB:CC:DD:EE:FF"

	ps, err := buildProviders(cfg, false, sensor.ModalityNone, clock.NewManual(0))
	require.NoError(t, err)

	want := []string{
		"serial:/dev/ttyUSB0",
		"mqtt:sensors/hand",
		"ble:AA:BB:CC:DD:EE:FF",
		"iio-proximity",
		"iio-light",
		"iio-motion",
	}
	if diff := cmp.Diff(want, providerNames(ps)); diff != "" {
		t.Errorf("providers mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, sensor.ModalityLight, ps[1].Modality())
}

func TestBuildProviders_Errors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sensors.MQTT.Broker = "tcp://localhost:1883"
	cfg.Sensors.MQTT.Topic = "t"
	cfg.Sensors.MQTT.Modality = "sonar"
	_, err := buildProviders(cfg, false, sensor.ModalityNone, clock.NewManual(0))
	assert.ErrorContains(t, err, "sensors.mqtt.modality")

	cfg = config.DefaultConfig()
	cfg.Sensors.Serial.Port = "/dev/ttyUSB0"
	cfg.Sensors.Serial.Parity = "Q"
	_, err = buildProviders(cfg, false, sensor.ModalityNone, clock.NewManual(0))
	assert.ErrorContains(t, err, "sensors.serial")

	cfg = config.DefaultConfig()
	cfg.Sensors.IIO.Enabled = false
	ps, err := buildProviders(cfg, false, sensor.ModalityNone, clock.NewManual(0))
	require.NoError(t, err)
	assert.Empty(t, ps)
}

func TestBuildActuators(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Actuators.Speech.Enabled = false
	cfg.Actuators.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Actuators.Kafka.Topic = "gestures"

	acts, closers := buildActuators(cfg, config.DiscardLogger())
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = a.Name()
	}
	assert.Equal(t, []string{"tone", "kafka"}, names)
	assert.Len(t, closers, 1)
	closeAll(config.DiscardLogger(), closers)

	cfg.Actuators.Tone.Enabled = false
	cfg.Actuators.Kafka.Brokers = nil
	acts, closers = buildActuators(cfg, config.DiscardLogger())
	assert.Empty(t, acts)
	assert.Empty(t, closers)
}

func TestGestureConfigAndSignificance(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Detector.WindowMS = 2500
	cfg.Detector.Significance.Light = 7

	want := gesture.Config{
		Window:         2500 * time.Millisecond,
		RequiredEvents: config.DefaultRequiredEvents,
		Cooldown:       config.DefaultCooldown,
	}
	assert.Equal(t, want, gestureConfig(cfg))
	assert.Equal(t, 7.0, significance(cfg)[sensor.ModalityLight])
	assert.Equal(t, config.ProximitySignificance, significance(cfg)[sensor.ModalityProximity])
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.StringVar(&flagConfig, "config", "", "")
	f.StringVar(&flagListen, "listen", "", "")
	f.DurationVar(&flagWindow, "window", config.DefaultWindow, "")
	f.IntVar(&flagRequiredEvents, "required-events", config.DefaultRequiredEvents, "")
	f.DurationVar(&flagCooldown, "cooldown", config.DefaultCooldown, "")
	f.StringVar(&flagLogLevel, "log-level", "", "")
	return cmd
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detector:\n  window_ms: 2800\n  required_events: 2\nserver:\n  listen: \":9000\"\n"), 0o644))

	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--required-events", "3", "--cooldown", "1500ms"}))
	t.Cleanup(func() { flagConfig = "" })

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 2800, cfg.Detector.WindowMS, "unset flag keeps the file value")
	assert.Equal(t, 3, cfg.Detector.RequiredEvents)
	assert.Equal(t, 1500, cfg.Detector.CooldownMS)
	assert.Equal(t, ":9000", cfg.Server.Listen)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))
	t.Cleanup(func() { flagConfig = "" })

	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "read config file")
}

func TestOpenLogOutput(t *testing.T) {
	w, closeFn, err := openLogOutput(config.DefaultConfig(), true)
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)
	closeFn()

	cfg := config.DefaultConfig()
	cfg.Logging.File = filepath.Join(t.TempDir(), "out.log")
	w, closeFn, err = openLogOutput(cfg, false)
	require.NoError(t, err)
	config.NewLogger(w, "info").Info("hello")
	closeFn()

	b, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=hello")
}
