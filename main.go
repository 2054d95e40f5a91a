package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"proxigesture.klederson.com/internal/actuator"
	"proxigesture.klederson.com/internal/app"
	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/config"
	"proxigesture.klederson.com/internal/monitor"
	"proxigesture.klederson.com/internal/samplelog"
	"proxigesture.klederson.com/internal/sensor"
	"proxigesture.klederson.com/internal/server"
)

var (
	flagDemo           bool
	flagConfig         string
	flagHeadless       bool
	flagListen         string
	flagWindow         time.Duration
	flagRequiredEvents int
	flagCooldown       time.Duration
	flagLogLevel       string
	flagModality       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "proxigesture",
		Short: "proxigesture - detect hand-wave gestures from a proximity sensor",
		Long: `proxigesture watches a distance, light or motion sensor and recognises a
quick series of hand passes as a gesture, answering with a short tone, a
spoken message and optional MQTT or Kafka events.

Sensors are probed in priority order: proximity, then light, then motion.
Use --demo to run against a synthetic sensor without hardware.`,
		Version:      config.AppVersion,
		SilenceUsage: true,
		RunE:         run,
	}

	f := rootCmd.Flags()
	f.BoolVar(&flagDemo, "demo", false, "Run in demo mode with a synthetic sensor (no hardware required)")
	f.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	f.BoolVar(&flagHeadless, "headless", false, "Run without the terminal UI until interrupted")
	f.StringVar(&flagListen, "listen", "", "HTTP listen address, e.g. :8080 (empty disables the server)")
	f.DurationVar(&flagWindow, "window", config.DefaultWindow, "Time window in which the passes must occur")
	f.IntVar(&flagRequiredEvents, "required-events", config.DefaultRequiredEvents, "Near passes that make a gesture")
	f.DurationVar(&flagCooldown, "cooldown", config.DefaultCooldown, "Minimum time between two gestures")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level: error, warn, info or debug")
	f.StringVar(&flagModality, "modality", "proximity", "Demo sensor modality: proximity, light or motion")

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return err
	}

	logOut, closeLog, err := openLogOutput(cfg, flagHeadless)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := config.NewLogger(logOut, cfg.Logging.Level)
	for _, w := range warnings {
		logger.Warn("config", "warning", w)
	}

	demoModality := sensor.ModalityProximity
	if flagDemo {
		if demoModality, err = sensor.ParseModality(flagModality); err != nil {
			return err
		}
	}

	clk := clock.NewMonotonic()
	providers, err := buildProviders(cfg, flagDemo, demoModality, clk)
	if err != nil {
		return err
	}

	metrics := monitor.NewMetrics()
	acts, closers := buildActuators(cfg, logger)
	defer closeAll(logger, closers)

	disp := actuator.NewDispatcher(logger, time.Duration(cfg.Actuators.TimeoutMS)*time.Millisecond, acts...)
	disp.OnSuccess = func(name string) { metrics.ActuatorResult(name, nil) }
	disp.OnFailure = metrics.ActuatorResult

	mon := monitor.New(monitor.Options{
		Selector:     sensor.NewSelector(logger, providers...),
		Log:          samplelog.New(cfg.Log.MaxPoints, cfg.Log.MaxAge(), clk),
		Clock:        clk,
		Detector:     gestureConfig(cfg),
		Significance: significance(cfg),
		Dispatcher:   disp,
		Metrics:      metrics,
		Logger:       logger,
		QueueSize:    config.SampleQueueSize,
	})
	defer mon.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvErr := make(chan error, 1)
	if cfg.Server.Listen != "" {
		srv := server.New(server.Options{
			Monitor:     mon,
			Metrics:     metrics,
			Logger:      logger,
			AccessLog:   logOut,
			GraphWindow: config.GraphWindow,
		})
		mon.AddListener(srv.Listener)
		go func() { srvErr <- srv.ListenAndServe(ctx, cfg.Server.Listen) }()
	}

	logger.Info("starting",
		"demo", flagDemo,
		"headless", flagHeadless,
		"providers", len(providers),
		"actuators", disp.Names(),
		"window", cfg.Detector.Window(),
		"required_events", cfg.Detector.RequiredEvents,
		"cooldown", cfg.Detector.Cooldown())

	if flagHeadless {
		return runHeadless(ctx, mon, logger, srvErr)
	}
	return runTUI(ctx, mon, clk)
}

func runHeadless(ctx context.Context, mon *monitor.Monitor, logger *slog.Logger, srvErr <-chan error) error {
	modality, err := mon.Start(ctx)
	if err != nil {
		if errors.Is(err, sensor.ErrNoSensorAvailable) {
			return fmt.Errorf("no sensor available: enable a sensor in the config or use --demo: %w", err)
		}
		return err
	}
	logger.Info("monitoring", "modality", modality)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-srvErr:
		return err
	}
}

func runTUI(ctx context.Context, mon *monitor.Monitor, clk clock.Clock) error {
	model := app.New(ctx, mon, clk)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithFPS(30),
	)
	mon.AddListener(app.Listener(p))

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// loadConfig reads the config file, if any, and applies flags the user set
// explicitly.
func loadConfig(cmd *cobra.Command) (config.File, error) {
	cfg := config.DefaultConfig()
	if flagConfig != "" {
		var err error
		if cfg, err = config.LoadFile(flagConfig); err != nil {
			return config.File{}, err
		}
	}

	var o config.FlagOverrides
	flags := cmd.Flags()
	if flags.Changed("window") {
		ms := int(flagWindow.Milliseconds())
		o.WindowMS = &ms
	}
	if flags.Changed("required-events") {
		o.RequiredEvents = &flagRequiredEvents
	}
	if flags.Changed("cooldown") {
		ms := int(flagCooldown.Milliseconds())
		o.CooldownMS = &ms
	}
	if flags.Changed("listen") {
		o.Listen = &flagListen
	}
	if flags.Changed("log-level") {
		o.LogLevel = &flagLogLevel
	}
	o.Apply(&cfg)
	return cfg, nil
}

// openLogOutput picks where logs go. The TUI owns the terminal, so unless
// running headless logs are appended to a file.
func openLogOutput(cfg config.File, headless bool) (io.Writer, func(), error) {
	if headless {
		return os.Stderr, func() {}, nil
	}
	path := cfg.Logging.File
	if path == "" {
		path = config.LogFile
	}
	f, err := os.OpenFile(config.ExpandPath(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
