package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"proxigesture.klederson.com/internal/actuator"
	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/config"
	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/sensor"
)

// buildProviders lists the sensor providers named by cfg. Within a modality
// explicitly configured devices come before the IIO sysfs fallback. Demo mode
// replaces everything with one synthetic provider.
func buildProviders(cfg config.File, demo bool, demoModality sensor.Modality, c clock.Clock) ([]sensor.Provider, error) {
	if demo {
		return []sensor.Provider{
			sensor.NewMockProvider(demoModality, c, config.DemoSampleEvery, config.DemoMaxRange),
		}, nil
	}

	var providers []sensor.Provider
	s := cfg.Sensors

	if s.Serial.Port != "" {
		opts := sensor.PortOptions{
			BaudRate: s.Serial.BaudRate,
			DataBits: s.Serial.DataBits,
			StopBits: s.Serial.StopBits,
			Parity:   s.Serial.Parity,
		}
		if _, err := opts.Normalize(); err != nil {
			return nil, fmt.Errorf("sensors.serial: %w", err)
		}
		providers = append(providers, sensor.NewSerialProvider(s.Serial.Port, opts, c, s.Serial.MaxRange))
	}

	if s.MQTT.Broker != "" {
		m, err := sensor.ParseModality(s.MQTT.Modality)
		if err != nil {
			return nil, fmt.Errorf("sensors.mqtt.modality: %w", err)
		}
		providers = append(providers, sensor.NewMQTTProvider(sensor.MQTTOptions{
			Broker:   s.MQTT.Broker,
			Topic:    s.MQTT.Topic,
			ClientID: s.MQTT.ClientID,
			Modality: m,
			MaxRange: s.MQTT.MaxRange,
		}, c))
	}

	if s.BLE.Address != "" {
		providers = append(providers, sensor.NewBLEProvider(sensor.BLEOptions{
			Address:       s.BLE.Address,
			MeasuredPower: s.BLE.MeasuredPower,
			PathLossExp:   s.BLE.PathLossExp,
			Alpha:         config.SmoothingAlpha,
			MaxRange:      s.BLE.MaxRange,
		}, c))
	}

	if s.IIO.Enabled {
		poll := time.Duration(s.IIO.PollMS) * time.Millisecond
		for _, m := range sensor.Priority {
			providers = append(providers, sensor.NewIIOProvider(s.IIO.Root, m, c, poll, s.IIO.MaxRange))
		}
	}

	return providers, nil
}

// buildActuators creates the enabled actuators. Actuators that cannot be set
// up are logged and left out; the returned closers release publisher
// connections on shutdown.
func buildActuators(cfg config.File, logger *slog.Logger) ([]actuator.Actuator, []io.Closer) {
	var (
		acts    []actuator.Actuator
		closers []io.Closer
	)
	a := cfg.Actuators

	if a.Tone.Enabled {
		acts = append(acts, actuator.NewTone(
			time.Duration(a.Tone.DurationMS)*time.Millisecond, a.Tone.FrequencyHz))
	}

	if a.Speech.Enabled {
		sp := actuator.NewSpeech(a.Speech.Command, a.Speech.Message)
		if cmd, err := sp.Resolve(); err != nil {
			logger.Warn("speech actuator disabled", "error", err)
		} else {
			logger.Debug("speech actuator ready", "command", cmd)
			acts = append(acts, sp)
		}
	}

	if a.MQTT.Broker != "" {
		m, err := actuator.DialMQTT(a.MQTT.Broker, a.MQTT.ClientID, a.MQTT.Topic)
		if err != nil {
			logger.Warn("mqtt publisher disabled", "broker", a.MQTT.Broker, "error", err)
		} else {
			acts = append(acts, m)
			closers = append(closers, m)
		}
	}

	if len(a.Kafka.Brokers) > 0 {
		k := actuator.NewKafka(a.Kafka.Brokers, a.Kafka.Topic, "proxigesture")
		acts = append(acts, k)
		closers = append(closers, k)
	}

	return acts, closers
}

// gestureConfig builds the detector settings. The significance threshold is
// filled in per session once the modality is known.
func gestureConfig(cfg config.File) gesture.Config {
	return gesture.Config{
		Window:         cfg.Detector.Window(),
		RequiredEvents: cfg.Detector.RequiredEvents,
		Cooldown:       cfg.Detector.Cooldown(),
	}
}

// significance maps the configured thresholds onto modalities.
func significance(cfg config.File) map[sensor.Modality]float64 {
	s := cfg.Detector.Significance
	return map[sensor.Modality]float64{
		sensor.ModalityProximity: s.Proximity,
		sensor.ModalityLight:     s.Light,
		sensor.ModalityMotion:    s.Motion,
	}
}

func closeAll(logger *slog.Logger, closers []io.Closer) {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}
