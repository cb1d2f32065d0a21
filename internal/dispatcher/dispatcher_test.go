package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, msg := range l.messages {
		if strings.HasPrefix(msg, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("snapshot", func(e Event) error {
		got = e
		return nil
	})

	err := d.Dispatch(Event{Kind: "snapshot", Payload: 42})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.Payload != 42 {
		t.Errorf("expected payload 42, got %v", got.Payload)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
}

func TestDispatcher_KeepsTimestamp(t *testing.T) {
	d, _ := newTestDispatcher(t)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var got time.Time
	d.Register("warning", func(e Event) error {
		got = e.Timestamp
		return nil
	})

	_ = d.Dispatch(Event{Kind: "warning", Timestamp: ts})

	if !got.Equal(ts) {
		t.Errorf("expected %v, got %v", ts, got)
	}
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(Event{Kind: "unknown"})

	if err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register("snapshot", func(e Event) error {
		processed.Add(1)
		wg.Done()
		return nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		if err := d.Dispatch(Event{Kind: "snapshot"}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register("residency", func(e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}, Buffered(2))

	_ = d.Dispatch(Event{Kind: "residency"}) // being processed
	<-started
	_ = d.Dispatch(Event{Kind: "residency"}) // queued
	_ = d.Dispatch(Event{Kind: "residency"}) // queued

	err := d.Dispatch(Event{Kind: "residency"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	d.Register("snapshot", func(e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil
	}, Buffered(1), Blocking())

	// First event starts processing
	_ = d.Dispatch(Event{Kind: "snapshot"})
	<-started
	// Second event fills the queue
	_ = d.Dispatch(Event{Kind: "snapshot"})

	// Third event should block (test with timeout)
	done := make(chan struct{})
	go func() {
		_ = d.Dispatch(Event{Kind: "snapshot"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
	<-done
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("snapshot", func(e Event) error {
		return nil
	}, Logged())

	_ = d.Dispatch(Event{Kind: "snapshot"})

	if n := logger.count("DEBUG"); n < 2 {
		t.Errorf("expected at least 2 debug messages, got %d", n)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("warning", func(e Event) error {
		return fmt.Errorf("test error")
	}, Logged())

	if err := d.Dispatch(Event{Kind: "warning"}); err == nil {
		t.Error("expected handler error to be returned")
	}

	if logger.count("ERROR") != 1 {
		t.Error("expected one error log message")
	}
}

func TestDispatcher_BufferedHandlerErrorLogged(t *testing.T) {
	logger := &testLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	d.Register("warning", func(e Event) error {
		return fmt.Errorf("storage down")
	}, Buffered(4))

	if err := d.Dispatch(Event{Kind: "warning"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if logger.count("ERROR") != 1 {
		t.Errorf("expected one error log message, got %d", logger.count("ERROR"))
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	logger := &testLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	var processed atomic.Int32
	d.Register("snapshot", func(e Event) error {
		processed.Add(1)
		return nil
	}, Buffered(100), Logged())

	if err := d.Dispatch(Event{Kind: "snapshot"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}
	if n := logger.count("DEBUG"); n < 2 {
		t.Errorf("expected debug log messages, got %d", n)
	}
}

func TestDispatcher_CloseDrainsAndRejects(t *testing.T) {
	logger := &testLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	var processed atomic.Int32
	d.Register("snapshot", func(e Event) error {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		_ = d.Dispatch(Event{Kind: "snapshot"})
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if processed.Load() != 5 {
		t.Errorf("expected 5 processed after Close, got %d", processed.Load())
	}

	if err := d.Dispatch(Event{Kind: "snapshot"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// idempotent
	if err := d.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
