// Package config holds the viewer settings. Defaults reproduce the fixed constants
// the viewer works with when started without arguments; an optional YAML file
// overrides them, and command line flags override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"swarm-viewer/internal/simulation"
	"swarm-viewer/internal/telemetry"
)

// Display defaults. Kept here rather than taken from the visualization package so
// that loading a configuration does not link the window toolkit.
const (
	DefaultWidth       = 800
	DefaultHeight      = 800
	DefaultTitle       = "Swarm Viewer"
	DefaultTPS         = 60
	DefaultOffset      = 10.0
	DefaultScale       = 40.0
	DefaultVectorScale = 100.0
)

// Config is the complete viewer configuration.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Display   DisplayConfig   `yaml:"display"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig configures the supervised simulation process.
type EngineConfig struct {
	// Path to the engine binary, relative to the working directory.
	Path string `yaml:"path"`
	// GracePeriod is how long shutdown waits for the engine after the terminate signal.
	GracePeriod time.Duration `yaml:"gracePeriod"`
}

// TelemetryConfig configures the subscriber.
type TelemetryConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	PollTimeout time.Duration `yaml:"pollTimeout"`
	Backlog     int           `yaml:"backlog"`
}

// DisplayConfig configures the window and the coordinate mapping.
type DisplayConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Title       string  `yaml:"title"`
	TPS         int     `yaml:"tps"` // Target ticks per second
	Offset      float64 `yaml:"offset"`
	Scale       float64 `yaml:"scale"`
	VectorScale float64 `yaml:"vectorScale"`
	Overlay     bool    `yaml:"overlay"`
	Headless    bool    `yaml:"headless"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Optional rotated log file, in addition to stderr
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Path:        simulation.DefaultPath(),
			GracePeriod: simulation.DefaultGracePeriod,
		},
		Telemetry: TelemetryConfig{
			Endpoint:    telemetry.DefaultEndpoint,
			PollTimeout: telemetry.DefaultPollTimeout,
			Backlog:     telemetry.DefaultBacklog,
		},
		Display: DisplayConfig{
			Width:       DefaultWidth,
			Height:      DefaultHeight,
			Title:       DefaultTitle,
			TPS:         DefaultTPS,
			Offset:      DefaultOffset,
			Scale:       DefaultScale,
			VectorScale: DefaultVectorScale,
			Overlay:     true,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.Path == "" {
		errs = append(errs, errors.New("engine.path is required"))
	}
	if c.Engine.GracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("engine.gracePeriod must be positive, got %s", c.Engine.GracePeriod))
	}
	if c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required"))
	}
	if c.Telemetry.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.pollTimeout must be positive, got %s", c.Telemetry.PollTimeout))
	}
	if c.Telemetry.Backlog <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.backlog must be positive, got %d", c.Telemetry.Backlog))
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display size must be positive, got %dx%d", c.Display.Width, c.Display.Height))
	}
	if c.Display.TPS <= 0 {
		errs = append(errs, fmt.Errorf("display.tps must be positive, got %d", c.Display.TPS))
	}
	if c.Display.Scale <= 0 {
		errs = append(errs, fmt.Errorf("display.scale must be positive, got %v", c.Display.Scale))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
