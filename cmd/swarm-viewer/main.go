package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"swarm-viewer/internal/config"
	"swarm-viewer/internal/logging"
	"swarm-viewer/internal/simulation"
	"swarm-viewer/internal/telemetry"
	"swarm-viewer/internal/viewer"
	"swarm-viewer/internal/visualization"
)

var version = "dev" // Set with -ldflags "-X main.version=..."

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		enginePath  string
		endpoint    string
		headless    bool
		logLevel    string
		logFormat   string
		logFile     string
		showVersion bool
	)

	flags := pflag.NewFlagSet("swarm-viewer", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "YAML configuration file")
	flags.StringVar(&enginePath, "engine", simulation.DefaultPath(), "path to the swarm engine binary")
	flags.StringVar(&endpoint, "endpoint", telemetry.DefaultEndpoint, "telemetry publisher endpoint")
	flags.BoolVar(&headless, "headless", false, "run without a window, logging frame status instead")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&logFile, "log-file", "", "also write logs to this rotated file")
	flags.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Println("swarm-viewer", version)
		return nil
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flags given on the command line win over the file.
	if flags.Changed("engine") {
		cfg.Engine.Path = enginePath
	}
	if flags.Changed("endpoint") {
		cfg.Telemetry.Endpoint = endpoint
	}
	if flags.Changed("headless") {
		cfg.Display.Headless = headless
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logCloser, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	logger = logger.With("session", uuid.NewString())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var window *visualization.WindowSurface
	deps := viewer.Dependencies{
		LaunchEngine: func(path string) (viewer.Engine, error) {
			engine, err := simulation.Launch(path,
				simulation.WithLogger(logger),
				simulation.WithGracePeriod(cfg.Engine.GracePeriod),
			)
			if err != nil {
				return nil, err
			}
			return engine, nil
		},
		OpenSurface: func() (visualization.Surface, error) {
			if cfg.Display.Headless {
				return visualization.NewHeadlessSurface(logger, visualization.DefaultReportEvery), nil
			}
			d := cfg.Display
			window = visualization.NewWindowSurface(d.Width, d.Height, d.Title, d.Overlay)
			return window, nil
		},
		ConnectFeed: func(ctx context.Context, endpoint string) (viewer.Feed, error) {
			sub, err := telemetry.Connect(ctx, endpoint,
				telemetry.WithLogger(logger),
				telemetry.WithBacklog(cfg.Telemetry.Backlog),
			)
			if err != nil {
				return nil, err
			}
			return sub, nil
		},
	}

	session, err := viewer.Start(ctx, viewer.Options{
		EnginePath:  cfg.Engine.Path,
		Endpoint:    cfg.Telemetry.Endpoint,
		PollTimeout: cfg.Telemetry.PollTimeout,
		TPS:         cfg.Display.TPS,
		Projector: visualization.LinearProjector{
			Offset:      cfg.Display.Offset,
			Scale:       cfg.Display.Scale,
			VectorScale: cfg.Display.VectorScale,
		},
		Logger: logger,
	}, deps)
	if err != nil {
		return err
	}

	if window != nil {
		err = viewer.RunWindow(ctx, session, window)
	} else {
		err = session.Run(ctx)
	}
	if err != nil {
		// Shutdown problems are logged by the session already.
		logger.Warn("shutdown finished with errors", "error", err)
	}
	logger.Info("viewer stopped", "reason", session.Reason())
	return nil
}
