package config

import "time"

const (
	// Gesture detection
	DefaultWindow         = 2000 * time.Millisecond // Rolling window for near passes
	DefaultRequiredEvents = 3                       // Near passes needed inside the window
	DefaultCooldown       = 2000 * time.Millisecond // Minimum spacing between two gestures

	// Documented tuning ranges; values outside are accepted with a warning
	MinWindow         = 2000 * time.Millisecond
	MaxWindow         = 3000 * time.Millisecond
	MinRequiredEvents = 2
	MaxRequiredEvents = 3

	// Significance thresholds, in each modality's native unit
	ProximitySignificance = 0.1 // distance units
	LightSignificance     = 5.0 // lux
	MotionSignificance    = 5.0 // m/s^2

	// Sample log
	MaxLogPoints = 300
	MaxLogAge    = 30 * time.Second

	// Sensors
	IIORoot         = "/sys/bus/iio/devices"
	IIOPollInterval = 50 * time.Millisecond
	SerialBaudRate  = 9600
	MeasuredPower   = -59.0 // BLE RSSI at 1 meter (dBm)
	PathLossExp     = 2.5   // BLE path loss exponent (N)
	SmoothingAlpha  = 0.3   // EMA smoothing factor for BLE RSSI (30% new, 70% old)
	SampleQueueSize = 256   // Samples buffered between provider and detector

	// Actuators
	PulseDuration   = 200 * time.Millisecond
	PulseFrequency  = 440.0 // Hz
	SpeechMessage   = "Gesture detected"
	ActuatorTimeout = 5 * time.Second

	// Display
	TickInterval    = 100 * time.Millisecond // Graph redraw cadence
	GraphWindow     = 10 * time.Second       // Readings shown in the graph panel
	GestureFlash    = time.Second            // Banner time after a gesture
	DemoMaxRange    = 8.0                    // Demo proximity sensor range (cm)
	DemoSampleEvery = 50 * time.Millisecond

	// App
	AppName    = "PROXIGESTURE"
	AppVersion = "1.0"
	LogFile    = "proxigesture.log"
)
