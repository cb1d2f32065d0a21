// Package dispatcher routes record events to per-kind handlers, optionally through
// a buffered worker goroutine.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrQueueFull is returned by a non-blocking buffered handler that cannot accept
	// another event.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is one record produced by the streaming core.
type Event struct {
	Kind      string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers. Register must not be called
// concurrently with Dispatch.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	queueSize    metric.Int64ObservableGauge
	processed    metric.Int64Counter
	dropped      metric.Int64Counter
	registration metric.Registration

	// buffers is read by the gauge callback; mu also guards closed so no send
	// races a channel close
	mu      sync.RWMutex
	buffers map[string]chan Event
	closed  bool
	workers sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := otel.Meter("github.com/objectstream/streamer/internal/dispatcher")

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	d.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("kind", kind)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given kind with optional configuration.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(kind, cfg.bufferSize, cfg.blocking, !cfg.logged, handler)
	}

	d.handlers[kind] = handler
}

// Dispatch routes an event to its registered handler. Buffered handlers return
// once the event is queued.
func (d *Dispatcher) Dispatch(e Event) error {
	h, ok := d.handlers[e.Kind]
	if !ok {
		return fmt.Errorf("unknown event kind: %s", e.Kind)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return h(e)
}

// Close stops accepting events and waits until every buffered event has been handled.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.workers.Wait()
	if d.registration != nil {
		return d.registration.Unregister()
	}
	return nil
}

func (d *Dispatcher) withBuffer(kind string, size int, blocking, logErrors bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[kind] = buffer
	d.mu.Unlock()

	kindAttr := attribute.String("kind", kind)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			if err := h(e); err != nil && logErrors {
				d.logger.Error("event failed", "kind", kind, "error", err)
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
		}
	}()

	return func(e Event) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return ErrClosed
		}

		if blocking {
			buffer <- e
			return nil
		}

		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
			return fmt.Errorf("%w: %s", ErrQueueFull, kind)
		}
	}
}

func (d *Dispatcher) withLogging(kind string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "kind", kind)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "kind", kind, "duration", time.Since(start))
		}

		return err
	}
}
