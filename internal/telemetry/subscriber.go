package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zeromq/zmq4"
)

const (
	DefaultEndpoint    = "tcp://127.0.0.1:5555"
	DefaultPollTimeout = 100 * time.Millisecond
	DefaultBacklog     = 16

	defaultDialRetry    = 250 * time.Millisecond
	defaultDialAttempts = 40 // One dial round lasts about 10s before it is reported and restarted
	readRetryDelay      = 50 * time.Millisecond
	closeTimeout        = time.Second
)

var (
	// ErrNoMessage is returned by Receive when nothing is waiting.
	ErrNoMessage = errors.New("no message available")
	// ErrClosed is returned by Receive after Close.
	ErrClosed = errors.New("subscriber closed")

	errEmptyMessage = errors.New("message has no frames")
)

// RecvError wraps any failure to obtain a message. It is always recoverable:
// the caller treats it as "no update this tick".
type RecvError struct {
	Err error
}

func (e *RecvError) Error() string {
	return fmt.Sprintf("receive telemetry: %v", e.Err)
}

func (e *RecvError) Unwrap() error {
	return e.Err
}

// subSocket is the part of zmq4.Socket the subscriber uses.
type subSocket interface {
	Dial(endpoint string) error
	SetOption(name string, value any) error
	Recv() (zmq4.Msg, error)
	Close() error
}

type delivery struct {
	payload string
	err     error
}

// Option configures a Subscriber.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	backlog      int
	dialRetry    time.Duration
	dialAttempts int
}

// WithLogger sets the logger used for socket lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBacklog sets how many received messages may wait for the render loop.
// When the backlog is full the oldest message is discarded.
func WithBacklog(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.backlog = n
		}
	}
}

// WithDialRetry configures how the background dial retries while the publisher is not
// yet bound. After attempts failures the error is delivered as a RecvError and a
// new round starts; -1 retries without reporting.
func WithDialRetry(interval time.Duration, attempts int) Option {
	return func(o *options) {
		o.dialRetry = interval
		o.dialAttempts = attempts
	}
}

// Subscriber owns a SUB socket subscribed to every topic. A background reader moves
// messages from the socket into a bounded inbox; Poll and Receive are meant to be
// called from a single goroutine.
type Subscriber struct {
	socket   subSocket
	endpoint string
	stop     <-chan struct{}    // Messaging context done
	release  context.CancelFunc // Cancels the messaging context
	logger   *slog.Logger
	linkUp   atomic.Bool

	inbox      chan delivery
	pending    *delivery // Message seen by Poll but not yet taken by Receive
	done       chan struct{}
	readerDone chan struct{}
	dropped    atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// Connect returns a subscriber for endpoint without waiting for the publisher.
// Dialing happens in the background and Poll simply times out until the link is up.
// Cancelling ctx or calling Close stops the dial.
func Connect(ctx context.Context, endpoint string, opts ...Option) (*Subscriber, error) {
	if transport, addr, ok := strings.Cut(endpoint, "://"); !ok || transport == "" || addr == "" {
		return nil, fmt.Errorf("invalid endpoint %q", endpoint)
	}

	o := options{
		logger:       slog.Default(),
		backlog:      DefaultBacklog,
		dialRetry:    defaultDialRetry,
		dialAttempts: defaultDialAttempts,
	}
	for _, opt := range opts {
		opt(&o)
	}

	socketCtx, release := context.WithCancel(ctx)
	socket := zmq4.NewSub(socketCtx,
		zmq4.WithDialerRetry(o.dialRetry),
		zmq4.WithDialerMaxRetries(o.dialAttempts),
		zmq4.WithAutomaticReconnect(true),
	)
	return newSubscriber(socketCtx, socket, release, endpoint, o), nil
}

func newSubscriber(ctx context.Context, socket subSocket, release context.CancelFunc, endpoint string, o options) *Subscriber {
	s := &Subscriber{
		socket:     socket,
		endpoint:   endpoint,
		stop:       ctx.Done(),
		release:    release,
		logger:     o.logger,
		inbox:      make(chan delivery, o.backlog),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	go s.read()
	return s
}

func (s *Subscriber) read() {
	defer close(s.readerDone)
	if !s.dial() {
		return
	}
	for {
		msg, err := s.socket.Recv()
		if s.closed() {
			return
		}
		if err != nil {
			s.deliver(delivery{err: err})
			// Back off so a broken socket does not spin.
			if !s.wait(readRetryDelay) {
				return
			}
			continue
		}
		if len(msg.Frames) == 0 {
			s.deliver(delivery{err: errEmptyMessage})
			continue
		}
		s.deliver(delivery{payload: string(msg.Frames[0])})
	}
}

// dial connects and subscribes to every topic. It keeps retrying until it
// succeeds, and reports false once the subscriber is closed or its context ends.
func (s *Subscriber) dial() bool {
	for {
		err := s.socket.Dial(s.endpoint)
		if s.closed() {
			return false
		}
		if err == nil {
			break
		}
		s.logger.Warn("telemetry dial failed, retrying", "endpoint", s.endpoint, "error", err)
		s.deliver(delivery{err: fmt.Errorf("dial %s: %w", s.endpoint, err)})
		if !s.wait(readRetryDelay) {
			return false
		}
	}

	// Empty topic: receive everything the engine publishes.
	if err := s.socket.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		s.logger.Error("telemetry subscribe failed", "endpoint", s.endpoint, "error", err)
		s.deliver(delivery{err: fmt.Errorf("subscribe %s: %w", s.endpoint, err)})
		return false
	}
	s.linkUp.Store(true)
	s.logger.Info("telemetry subscriber connected", "endpoint", s.endpoint)
	return true
}

// wait sleeps for d and reports false if the subscriber stopped meanwhile.
func (s *Subscriber) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.done:
		return false
	case <-s.stop:
		return false
	}
}

// deliver queues d, discarding the oldest waiting message when the inbox is full.
func (s *Subscriber) deliver(d delivery) {
	for {
		select {
		case s.inbox <- d:
			return
		case <-s.done:
			return
		default:
		}
		select {
		case <-s.inbox:
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Poll waits up to timeout for a message to become available. It returns false
// without waiting once the subscriber is closed.
func (s *Subscriber) Poll(timeout time.Duration) bool {
	if s.pending != nil {
		return true
	}
	if s.closed() {
		return false
	}
	if timeout <= 0 {
		select {
		case d := <-s.inbox:
			s.pending = &d
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case d := <-s.inbox:
		s.pending = &d
		return true
	case <-timer.C:
		return false
	case <-s.done:
		return false
	}
}

// Receive returns the next message without blocking. Every failure is a *RecvError.
func (s *Subscriber) Receive() (string, error) {
	var d delivery
	if s.pending != nil {
		d = *s.pending
		s.pending = nil
	} else {
		select {
		case d = <-s.inbox:
		default:
			if s.closed() {
				return "", &RecvError{Err: ErrClosed}
			}
			return "", &RecvError{Err: ErrNoMessage}
		}
	}
	if d.err != nil {
		return "", &RecvError{Err: d.err}
	}
	return d.payload, nil
}

// Connected reports whether the socket has dialed the publisher and subscribed.
func (s *Subscriber) Connected() bool {
	return s.linkUp.Load()
}

// Dropped returns how many messages were discarded because the inbox was full.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close closes the socket and releases the messaging context. It is safe to call
// more than once; later calls return the first result.
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if err := s.socket.Close(); err != nil {
			s.closeErr = fmt.Errorf("close socket: %w", err)
		}
		s.logger.Info("telemetry socket closed")

		s.release()
		select {
		case <-s.readerDone:
		case <-time.After(closeTimeout):
			s.logger.Warn("telemetry reader did not stop", "timeout", closeTimeout)
		}
		s.logger.Info("messaging context released")
	})
	return s.closeErr
}
