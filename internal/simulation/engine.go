package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"
)

// DefaultGracePeriod is how long Shutdown waits after the terminate signal before killing the engine.
const DefaultGracePeriod = time.Second

// DefaultPath returns the engine location relative to the viewer's working directory.
func DefaultPath() string {
	path := filepath.Join("..", "build", "Debug", "SwarmEngine")
	if runtime.GOOS == "windows" {
		path += ".exe"
	}
	return path
}

// Liveness is the coarse state of the supervised engine process.
type Liveness int

const (
	Unknown Liveness = iota // No process, or its state could not be determined
	Running
	Exited
)

func (l Liveness) String() string {
	switch l {
	case Running:
		return "running"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Status is the result of a liveness query.
type Status struct {
	Liveness Liveness
	ExitCode int // Valid when Liveness is Exited; -1 if the process was killed by a signal
}

func (s Status) String() string {
	if s.Liveness == Exited {
		return fmt.Sprintf("exited(%d)", s.ExitCode)
	}
	return s.Liveness.String()
}

// LaunchError reports that the engine binary is missing or could not be started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch engine %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Option configures Launch.
type Option func(*Engine)

// WithLogger sets the logger used for lifecycle messages and forwarded engine output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gracePeriod = d
		}
	}
}

// Engine is a handle to the external simulation process. The engine is started
// without arguments; its stdout and stderr are forwarded to the logger line by line.
type Engine struct {
	path        string
	cmd         *exec.Cmd
	logger      *slog.Logger
	gracePeriod time.Duration

	stdout *lineLogger
	stderr *lineLogger

	exited chan struct{} // Closed once Wait has returned

	shutdownOnce sync.Once
	shutdownErr  error
}

// Launch starts the engine binary at path.
func Launch(path string, opts ...Option) (*Engine, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &LaunchError{Path: path, Err: errors.New("is a directory")}
	}

	e := &Engine{
		path:        path,
		logger:      slog.Default(),
		gracePeriod: DefaultGracePeriod,
		exited:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	engineLogger := e.logger.With("source", "engine")
	e.stdout = &lineLogger{logger: engineLogger.With("stream", "stdout"), level: slog.LevelInfo}
	e.stderr = &lineLogger{logger: engineLogger.With("stream", "stderr"), level: slog.LevelWarn}

	// A bare file name would be looked up in PATH; the engine always lives on disk relative to us.
	command := path
	if filepath.Base(path) == path {
		command = "." + string(filepath.Separator) + path
	}
	e.cmd = exec.Command(command)
	e.cmd.Stdout = e.stdout
	e.cmd.Stderr = e.stderr
	e.cmd.WaitDelay = e.gracePeriod // Bounds Wait if a grandchild keeps the output pipes open

	if err := e.cmd.Start(); err != nil {
		return nil, &LaunchError{Path: path, Err: err}
	}
	go e.wait()

	e.logger.Info("engine started", "path", path, "pid", e.cmd.Process.Pid)
	return e, nil
}

func (e *Engine) wait() {
	err := e.cmd.Wait()
	e.stdout.flush()
	e.stderr.flush()
	close(e.exited)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		e.logger.Warn("waiting for engine failed", "pid", e.PID(), "error", err)
	}
	e.logger.Debug("engine process reaped", "pid", e.PID(), "status", e.Poll())
}

// PID returns the operating system process id, or 0 if the engine never started.
func (e *Engine) PID() int {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return 0
	}
	return e.cmd.Process.Pid
}

// Poll reports whether the engine is still running. It never blocks.
func (e *Engine) Poll() Status {
	if e == nil || e.cmd == nil {
		return Status{Liveness: Unknown}
	}
	select {
	case <-e.exited:
		if e.cmd.ProcessState == nil {
			return Status{Liveness: Unknown}
		}
		return Status{Liveness: Exited, ExitCode: e.cmd.ProcessState.ExitCode()}
	default:
		return Status{Liveness: Running}
	}
}

// Shutdown asks the engine to terminate, waits up to the grace period and kills it
// if it is still running. It is safe to call repeatedly and after the engine has
// exited on its own; later calls return the result of the first.
func (e *Engine) Shutdown() error {
	if e == nil || e.cmd == nil {
		return nil
	}
	e.shutdownOnce.Do(func() {
		e.shutdownErr = e.stop()
	})
	return e.shutdownErr
}

func (e *Engine) stop() error {
	select {
	case <-e.exited:
		e.logger.Info("engine already stopped", "status", e.Poll())
		return nil
	default:
	}

	e.logger.Info("terminating engine", "pid", e.PID())
	if err := e.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		// Windows has no terminate signal; go straight to kill.
		e.logger.Warn("terminate signal failed", "pid", e.PID(), "error", err)
	} else {
		timer := time.NewTimer(e.gracePeriod)
		defer timer.Stop()
		select {
		case <-e.exited:
			e.logger.Info("engine closed", "status", e.Poll())
			return nil
		case <-timer.C:
			e.logger.Warn("engine did not exit in time, killing", "pid", e.PID(), "grace_period", e.gracePeriod)
		}
	}

	if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill engine (pid %d): %w", e.PID(), err)
	}
	<-e.exited
	e.logger.Info("engine killed", "status", e.Poll())
	return nil
}
