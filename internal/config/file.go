package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML configuration for proxigesture. Every value is read once at
// startup; nothing here changes while a monitoring session runs.
type File struct {
	Detector  DetectorConfig  `yaml:"detector"`
	Log       LogConfig       `yaml:"log"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Actuators ActuatorsConfig `yaml:"actuators"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type DetectorConfig struct {
	WindowMS       int                `yaml:"window_ms"`
	RequiredEvents int                `yaml:"required_events"`
	CooldownMS     int                `yaml:"cooldown_ms"`
	Significance   SignificanceConfig `yaml:"significance"`
}

// SignificanceConfig holds the minimum raw delta per modality.
type SignificanceConfig struct {
	Proximity float64 `yaml:"proximity"`
	Light     float64 `yaml:"light"`
	Motion    float64 `yaml:"motion"`
}

type LogConfig struct {
	MaxPoints int `yaml:"max_points"`
	MaxAgeMS  int `yaml:"max_age_ms"`
}

type SensorsConfig struct {
	IIO    IIOConfig       `yaml:"iio"`
	Serial SerialConfig    `yaml:"serial"`
	BLE    BLEConfig       `yaml:"ble"`
	MQTT   MQTTInputConfig `yaml:"mqtt"`
}

type IIOConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Root     string  `yaml:"root"`
	PollMS   int     `yaml:"poll_ms"`
	MaxRange float64 `yaml:"max_range"` // distance channel, centimetres
}

// SerialConfig describes a microcontroller that prints one distance per line.
type SerialConfig struct {
	Port     string  `yaml:"port,omitempty"`
	BaudRate int     `yaml:"baud_rate"`
	DataBits int     `yaml:"data_bits,omitempty"`
	StopBits int     `yaml:"stop_bits,omitempty"`
	Parity   string  `yaml:"parity,omitempty"`
	MaxRange float64 `yaml:"max_range"`
}

// BLEConfig targets one beacon whose RSSI is turned into a distance.
type BLEConfig struct {
	Address       string  `yaml:"address,omitempty"`
	MeasuredPower float64 `yaml:"measured_power"`
	PathLossExp   float64 `yaml:"path_loss_exp"`
	MaxRange      float64 `yaml:"max_range"`
}

// MQTTInputConfig subscribes to samples published by a remote sensor.
type MQTTInputConfig struct {
	Broker   string  `yaml:"broker,omitempty"`
	Topic    string  `yaml:"topic,omitempty"`
	ClientID string  `yaml:"client_id,omitempty"`
	Modality string  `yaml:"modality"`
	MaxRange float64 `yaml:"max_range"`
}

type ActuatorsConfig struct {
	Tone      ToneConfig    `yaml:"tone"`
	Speech    SpeechConfig  `yaml:"speech"`
	MQTT      MQTTOutConfig `yaml:"mqtt"`
	Kafka     KafkaConfig   `yaml:"kafka"`
	TimeoutMS int           `yaml:"timeout_ms"`
}

type ToneConfig struct {
	Enabled     bool    `yaml:"enabled"`
	DurationMS  int     `yaml:"duration_ms"`
	FrequencyHz float64 `yaml:"frequency_hz"`
}

type SpeechConfig struct {
	Enabled bool   `yaml:"enabled"`
	Command string `yaml:"command,omitempty"` // empty: first of espeak-ng, espeak, spd-say
	Message string `yaml:"message"`
}

type MQTTOutConfig struct {
	Broker   string `yaml:"broker,omitempty"`
	Topic    string `yaml:"topic,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"` // empty disables the HTTP surface
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// DefaultConfig returns a fully-populated File with the package defaults.
func DefaultConfig() File {
	return File{
		Detector: DetectorConfig{
			WindowMS:       int(DefaultWindow.Milliseconds()),
			RequiredEvents: DefaultRequiredEvents,
			CooldownMS:     int(DefaultCooldown.Milliseconds()),
			Significance: SignificanceConfig{
				Proximity: ProximitySignificance,
				Light:     LightSignificance,
				Motion:    MotionSignificance,
			},
		},
		Log: LogConfig{
			MaxPoints: MaxLogPoints,
			MaxAgeMS:  int(MaxLogAge.Milliseconds()),
		},
		Sensors: SensorsConfig{
			IIO: IIOConfig{
				Enabled:  true,
				Root:     IIORoot,
				PollMS:   int(IIOPollInterval.Milliseconds()),
				MaxRange: 200,
			},
			Serial: SerialConfig{
				BaudRate: SerialBaudRate,
				MaxRange: 200,
			},
			BLE: BLEConfig{
				MeasuredPower: MeasuredPower,
				PathLossExp:   PathLossExp,
				MaxRange:      10,
			},
			MQTT: MQTTInputConfig{
				ClientID: "proxigesture-in",
				Modality: "proximity",
				MaxRange: 5,
			},
		},
		Actuators: ActuatorsConfig{
			Tone: ToneConfig{
				Enabled:     true,
				DurationMS:  int(PulseDuration.Milliseconds()),
				FrequencyHz: PulseFrequency,
			},
			Speech: SpeechConfig{
				Enabled: true,
				Message: SpeechMessage,
			},
			MQTT: MQTTOutConfig{
				ClientID: "proxigesture-out",
			},
			TimeoutMS: int(ActuatorTimeout.Milliseconds()),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML config on top of DefaultConfig. Unknown fields are
// rejected so typos surface at startup.
func LoadFile(path string) (File, error) {
	if path == "" {
		return File{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return File{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return File{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return File{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// FlagOverrides carries command-line values that take precedence over the
// file. A nil pointer means the flag was not set.
type FlagOverrides struct {
	WindowMS       *int
	RequiredEvents *int
	CooldownMS     *int
	Listen         *string
	LogLevel       *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *File) {
	if cfg == nil {
		return
	}
	if o.WindowMS != nil {
		cfg.Detector.WindowMS = *o.WindowMS
	}
	if o.RequiredEvents != nil {
		cfg.Detector.RequiredEvents = *o.RequiredEvents
	}
	if o.CooldownMS != nil {
		cfg.Detector.CooldownMS = *o.CooldownMS
	}
	if o.Listen != nil {
		cfg.Server.Listen = *o.Listen
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate rejects values the detector and log cannot run with. It returns
// warnings for values that work but fall outside the documented tuning ranges.
func (c *File) Validate() (warnings []string, err error) {
	d := c.Detector
	if d.WindowMS <= 0 {
		return nil, fmt.Errorf("detector.window_ms must be > 0, got %d", d.WindowMS)
	}
	if d.RequiredEvents < 1 {
		return nil, fmt.Errorf("detector.required_events must be >= 1, got %d", d.RequiredEvents)
	}
	if d.CooldownMS < 0 {
		return nil, fmt.Errorf("detector.cooldown_ms must be >= 0, got %d", d.CooldownMS)
	}
	for name, v := range map[string]float64{
		"proximity": d.Significance.Proximity,
		"light":     d.Significance.Light,
		"motion":    d.Significance.Motion,
	} {
		if v < 0 {
			return nil, fmt.Errorf("detector.significance.%s must be >= 0, got %g", name, v)
		}
	}
	if c.Log.MaxPoints <= 0 {
		return nil, fmt.Errorf("log.max_points must be > 0, got %d", c.Log.MaxPoints)
	}
	if c.Log.MaxAgeMS <= 0 {
		return nil, fmt.Errorf("log.max_age_ms must be > 0, got %d", c.Log.MaxAgeMS)
	}
	if c.Sensors.IIO.Enabled && c.Sensors.IIO.PollMS <= 0 {
		return nil, fmt.Errorf("sensors.iio.poll_ms must be > 0, got %d", c.Sensors.IIO.PollMS)
	}
	if c.Sensors.MQTT.Broker != "" && c.Sensors.MQTT.Topic == "" {
		return nil, errors.New("sensors.mqtt.topic is required when sensors.mqtt.broker is set")
	}
	if c.Actuators.MQTT.Broker != "" && c.Actuators.MQTT.Topic == "" {
		return nil, errors.New("actuators.mqtt.topic is required when actuators.mqtt.broker is set")
	}
	if len(c.Actuators.Kafka.Brokers) > 0 && c.Actuators.Kafka.Topic == "" {
		return nil, errors.New("actuators.kafka.topic is required when actuators.kafka.brokers is set")
	}
	if c.Actuators.TimeoutMS <= 0 {
		return nil, fmt.Errorf("actuators.timeout_ms must be > 0, got %d", c.Actuators.TimeoutMS)
	}
	if c.Actuators.Tone.Enabled && c.Actuators.Tone.DurationMS <= 0 {
		return nil, fmt.Errorf("actuators.tone.duration_ms must be > 0, got %d", c.Actuators.Tone.DurationMS)
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return nil, err
	}

	window := time.Duration(d.WindowMS) * time.Millisecond
	if window < MinWindow || window > MaxWindow {
		warnings = append(warnings, fmt.Sprintf("detector.window_ms=%d is outside the tuned range %d-%d",
			d.WindowMS, MinWindow.Milliseconds(), MaxWindow.Milliseconds()))
	}
	if d.RequiredEvents < MinRequiredEvents || d.RequiredEvents > MaxRequiredEvents {
		warnings = append(warnings, fmt.Sprintf("detector.required_events=%d is outside the tuned range %d-%d",
			d.RequiredEvents, MinRequiredEvents, MaxRequiredEvents))
	}
	return warnings, nil
}

// Window returns the detector window as a duration.
func (d DetectorConfig) Window() time.Duration {
	return time.Duration(d.WindowMS) * time.Millisecond
}

// Cooldown returns the detector cooldown as a duration.
func (d DetectorConfig) Cooldown() time.Duration {
	return time.Duration(d.CooldownMS) * time.Millisecond
}

// MaxAge returns the sample log age bound as a duration.
func (l LogConfig) MaxAge() time.Duration {
	return time.Duration(l.MaxAgeMS) * time.Millisecond
}
