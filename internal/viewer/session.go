package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"swarm-viewer/internal/simulation"
	"swarm-viewer/internal/telemetry"
	"swarm-viewer/internal/visualization"
)

// ErrEngineMissing is returned by Start when the engine binary does not exist.
var ErrEngineMissing = errors.New("engine binary not found")

// State is the render loop lifecycle state.
type State int

const (
	Initializing State = iota
	Running
	ShuttingDown
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine is the supervised simulation process.
type Engine interface {
	Poll() simulation.Status
	Shutdown() error
}

// Feed is the telemetry subscription.
type Feed interface {
	Poll(timeout time.Duration) bool
	Receive() (string, error)
	Close() error
}

// Dependencies creates the session's resources. Start calls them in field order.
type Dependencies struct {
	LaunchEngine func(path string) (Engine, error)
	OpenSurface  func() (visualization.Surface, error)
	ConnectFeed  func(ctx context.Context, endpoint string) (Feed, error)
}

// Options configures a session.
type Options struct {
	EnginePath  string
	Endpoint    string
	PollTimeout time.Duration
	TPS         int
	Projector   visualization.Projector
	Style       visualization.Style
	Logger      *slog.Logger
}

// Stats counts what happened to telemetry during a session.
type Stats struct {
	Received   uint64 // Messages taken from the feed
	Decoded    uint64 // Messages that replaced the displayed frame
	Rejected   uint64 // Messages that failed to decode
	RecvErrors uint64
	Dangling   uint64 // Trailing fields ignored across all messages
}

// Session owns the engine process, the telemetry feed and the rendering surface
// for one viewer run. All methods must be called from the same goroutine.
type Session struct {
	opts     Options
	logger   *slog.Logger
	renderer *visualization.Renderer

	engine  Engine
	feed    Feed
	surface visualization.Surface

	state  State
	frame  telemetry.Frame
	stats  Stats
	reason string // Why shutdown was requested

	shutdownErr error
}

// Start validates the engine binary and acquires every resource in order: engine
// process, surface, feed. If a step fails after something was acquired, the full
// shutdown sequence runs before Start returns the error.
func Start(ctx context.Context, opts Options, deps Dependencies) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Projector == nil {
		opts.Projector = visualization.NewLinearProjector()
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = telemetry.DefaultPollTimeout
	}
	if opts.TPS <= 0 {
		opts.TPS = 60
	}
	if opts.Style == (visualization.Style{}) {
		opts.Style = visualization.DefaultStyle()
	}

	s := &Session{
		opts:     opts,
		logger:   opts.Logger,
		renderer: visualization.NewRenderer(opts.Projector, opts.Style),
		state:    Initializing,
	}

	if _, err := os.Stat(opts.EnginePath); err != nil {
		s.state = Terminated
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrEngineMissing, opts.EnginePath)
		}
		return nil, fmt.Errorf("check engine binary: %w", err)
	}

	engine, err := deps.LaunchEngine(opts.EnginePath)
	if err != nil {
		s.state = Terminated
		return nil, err
	}
	s.engine = engine

	surface, err := deps.OpenSurface()
	if err != nil {
		return nil, s.abort(fmt.Errorf("open surface: %w", err))
	}
	s.surface = surface

	feed, err := deps.ConnectFeed(ctx, opts.Endpoint)
	if err != nil {
		return nil, s.abort(fmt.Errorf("connect telemetry: %w", err))
	}
	s.feed = feed

	s.state = Running
	s.logger.Info("viewer running", "engine", opts.EnginePath, "endpoint", opts.Endpoint)
	return s, nil
}

func (s *Session) abort(err error) error {
	s.requestShutdown("startup failed")
	if shutdownErr := s.Shutdown(); shutdownErr != nil {
		return errors.Join(err, shutdownErr)
	}
	return err
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Frame returns the frame currently on display.
func (s *Session) Frame() telemetry.Frame { return s.frame }

// Stats returns the telemetry counters.
func (s *Session) Stats() Stats { return s.stats }

// Reason returns why shutdown was requested, or "" while running.
func (s *Session) Reason() string { return s.reason }

// Tick runs one iteration of the render loop and returns the resulting state.
// Telemetry is fully processed before input is drained and the canvas presented.
// Pacing between ticks is left to the caller.
func (s *Session) Tick(ctx context.Context) State {
	if s.state != Running {
		return s.state
	}

	if ctx.Err() != nil {
		s.logger.Info("stopping on request")
		s.requestShutdown("interrupted")
	}

	if s.reason == "" {
		s.pollTelemetry()
		s.drainInput()
	}
	if s.reason == "" {
		s.surface.Present()
		s.checkEngine()
	}

	if s.reason != "" {
		s.Shutdown()
	}
	return s.state
}

func (s *Session) pollTelemetry() {
	if !s.feed.Poll(s.opts.PollTimeout) {
		return
	}
	defer s.updateOverlay()

	raw, err := s.feed.Receive()
	if err != nil {
		s.stats.RecvErrors++
		s.logger.Debug("telemetry receive failed", "error", err)
		return
	}
	s.stats.Received++

	frame, err := telemetry.Decode(raw)
	if err != nil {
		// Keep the previous frame on screen untouched.
		s.stats.Rejected++
		var decodeErr *telemetry.DecodeError
		if errors.As(err, &decodeErr) {
			s.logger.Debug("telemetry message rejected", "kind", decodeErr.Kind, "field", decodeErr.Field, "error", err)
		} else {
			s.logger.Debug("telemetry message rejected", "error", err)
		}
		return
	}
	if frame.Dropped > 0 {
		s.stats.Dangling += uint64(frame.Dropped)
		s.logger.Debug("ignored dangling telemetry fields", "fields", frame.Dropped, "entities", frame.Len())
	}

	s.frame = frame
	s.stats.Decoded++
	s.renderer.DrawFrame(s.surface, frame)
}

func (s *Session) updateOverlay() {
	summary := telemetry.Summarize(s.frame)
	s.surface.SetOverlay(visualization.Overlay{
		Entities:   summary.Count,
		MeanSpeed:  summary.MeanSpeed,
		MaxSpeed:   summary.MaxSpeed,
		Decoded:    s.stats.Decoded,
		Rejected:   s.stats.Rejected,
		RecvErrors: s.stats.RecvErrors,
	})
}

func (s *Session) drainInput() {
	for _, event := range s.surface.PollEvents() {
		if event.Kind == visualization.EventCloseRequested {
			s.logger.Info("window close requested")
			s.requestShutdown("close requested")
		}
	}
}

func (s *Session) checkEngine() {
	status := s.engine.Poll()
	if status.Liveness == simulation.Exited {
		s.logger.Warn("engine stopped unexpectedly", "status", status)
		s.requestShutdown("engine stopped")
	}
}

func (s *Session) requestShutdown(reason string) {
	if s.reason == "" {
		s.reason = reason
	}
}

// Run drives the session at the configured tick rate until it terminates, then
// returns the shutdown result. Slow ticks are not compensated for.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.opts.TPS))
	defer ticker.Stop()

	for s.Tick(ctx) == Running {
		select {
		case <-ticker.C:
		case <-ctx.Done():
		}
	}
	return s.Shutdown()
}

// Shutdown stops the engine, closes the feed and releases the surface. It runs
// once whatever triggered it; later calls return the first result. Every step
// runs even if an earlier one fails.
func (s *Session) Shutdown() error {
	if s.state == Terminated {
		return s.shutdownErr
	}
	if s.state == ShuttingDown {
		return nil // Re-entered from a release step
	}
	s.requestShutdown("shutdown requested")
	s.state = ShuttingDown
	s.logger.Info("shutting down", "reason", s.reason)

	var errs []error
	if s.engine != nil {
		errs = append(errs, s.release("engine", s.engine.Shutdown))
	}
	if s.feed != nil {
		errs = append(errs, s.release("telemetry", s.feed.Close))
	}
	if s.surface != nil {
		errs = append(errs, s.release("surface", s.surface.Close))
	}

	s.shutdownErr = errors.Join(errs...)
	s.state = Terminated
	s.logger.Info("shutdown complete",
		"received", s.stats.Received,
		"decoded", s.stats.Decoded,
		"rejected", s.stats.Rejected,
		"receive_errors", s.stats.RecvErrors,
		"dangling_fields", s.stats.Dangling,
	)
	return s.shutdownErr
}

// release runs one cleanup step, turning a panic into an error so the remaining steps still run.
func (s *Session) release(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release %s: panic: %v", name, r)
		}
		if err != nil {
			s.logger.Error("release failed", "resource", name, "error", err)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	s.logger.Info("released", "resource", name)
	return nil
}
