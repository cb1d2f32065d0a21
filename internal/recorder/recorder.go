// Package recorder forwards the manager's published state to the session storage
// backend and, when configured, to InfluxDB. Recording runs on the dispatcher's
// buffered workers so the simulation goroutine never waits on I/O.
package recorder

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/objectstream/streamer/internal/dispatcher"
	"github.com/objectstream/streamer/internal/limits"
	"github.com/objectstream/streamer/internal/manager"
	"github.com/objectstream/streamer/internal/residency"
	"github.com/objectstream/streamer/internal/storage"
	"github.com/objectstream/streamer/pkg/core"
)

// Event kinds routed through the dispatcher.
const (
	KindSnapshot  = "snapshot"
	KindResidency = "residency"
	KindWarning   = "warning"
)

// PointWriter receives a time series copy of the recorded data.
type PointWriter interface {
	WriteLimitSnapshot(s core.LimitSnapshot) error
	WriteResidencyCheck(c core.ResidencyCheck) error
}

// Config controls buffering and sampling.
type Config struct {
	BufferSize    int
	SnapshotEvery int
}

// Dependencies holds the recorder's collaborators. Points and EventLogger are
// optional.
type Dependencies struct {
	Backend     storage.Backend
	Points      PointWriter
	EventLogger dispatcher.Logger
	Logger      *slog.Logger
}

// Recorder is driven from the simulation goroutine; its handlers run on the
// dispatcher's workers.
type Recorder struct {
	deps       Dependencies
	cfg        Config
	dispatcher *dispatcher.Dispatcher

	lastTick uint64
	warned   bool
}

// New builds a Recorder and registers its event handlers.
func New(deps Dependencies, cfg Config) (*Recorder, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("recorder: storage backend is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.EventLogger == nil {
		deps.EventLogger = deps.Logger
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.SnapshotEvery <= 0 {
		cfg.SnapshotEvery = 1
	}

	d, err := dispatcher.New(deps.EventLogger)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}

	r := &Recorder{deps: deps, cfg: cfg, dispatcher: d}
	d.Register(KindSnapshot, r.handleSnapshot, dispatcher.Buffered(cfg.BufferSize), dispatcher.Logged())
	d.Register(KindResidency, r.handleResidency, dispatcher.Buffered(cfg.BufferSize), dispatcher.Logged())
	// a warning fires once per process, so it is never dropped
	d.Register(KindWarning, r.handleWarning, dispatcher.Buffered(cfg.BufferSize), dispatcher.Blocking(), dispatcher.Logged())
	return r, nil
}

// OnPulse samples the manager status. A snapshot is recorded every SnapshotEvery
// ticks and the pool warning once, at the first pulse that observes it.
func (r *Recorder) OnPulse(status manager.Status) {
	if status.Warned && !r.warned {
		r.warned = true
		r.dispatch(KindWarning, core.LimitWarning{
			Time:    status.Time.UTC(),
			Tick:    status.Tick,
			Code:    limits.LimitWarningCode,
			Message: status.Warning,
		}, status.Time)
	}

	if status.Tick == r.lastTick || status.Tick%uint64(r.cfg.SnapshotEvery) != 0 {
		return
	}
	r.lastTick = status.Tick
	r.dispatch(KindSnapshot, SnapshotFromStatus(status), status.Time)
}

// RecordResidency records the outcome of a residency query.
func (r *Recorder) RecordResidency(check core.ResidencyCheck) {
	r.dispatch(KindResidency, check, check.Time)
}

// Close drains the queued records. The storage backend is left open.
func (r *Recorder) Close() error {
	return r.dispatcher.Close()
}

func (r *Recorder) dispatch(kind string, payload any, ts time.Time) {
	err := r.dispatcher.Dispatch(dispatcher.Event{Kind: kind, Payload: payload, Timestamp: ts})
	if err != nil {
		r.deps.Logger.Warn("Record dropped", "kind", kind, "error", err)
	}
}

func (r *Recorder) handleSnapshot(e dispatcher.Event) error {
	snap := e.Payload.(core.LimitSnapshot)
	if err := r.deps.Backend.RecordLimitSnapshot(&snap); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}
	if r.deps.Points != nil {
		if err := r.deps.Points.WriteLimitSnapshot(snap); err != nil {
			return fmt.Errorf("writing snapshot point: %w", err)
		}
	}
	return nil
}

func (r *Recorder) handleResidency(e dispatcher.Event) error {
	check := e.Payload.(core.ResidencyCheck)
	if err := r.deps.Backend.RecordResidencyCheck(&check); err != nil {
		return fmt.Errorf("storing residency check: %w", err)
	}
	if r.deps.Points != nil {
		if err := r.deps.Points.WriteResidencyCheck(check); err != nil {
			return fmt.Errorf("writing residency point: %w", err)
		}
	}
	return nil
}

func (r *Recorder) handleWarning(e dispatcher.Event) error {
	w := e.Payload.(core.LimitWarning)
	if err := r.deps.Backend.RecordLimitWarning(&w); err != nil {
		return fmt.Errorf("storing limit warning: %w", err)
	}
	return nil
}

// SnapshotFromStatus converts a published manager status into a storage record.
func SnapshotFromStatus(s manager.Status) core.LimitSnapshot {
	return core.LimitSnapshot{
		Time:               s.Time.UTC(),
		Tick:               s.Tick,
		Standard:           s.Ledger.Standard,
		LowLOD:             s.Ledger.LowLOD,
		Resident:           s.Resident,
		Registered:         s.Registered,
		EntryInfoNodes:     s.Ledger.EntryInfoNodes,
		PointerSingleLinks: s.Ledger.PointerSingleLinks,
		PointerDoubleLinks: s.Ledger.PointerDoubleLinks,
		ObjectLimit:        s.Ledger.ObjectLimit,
		LowLODLimit:        s.Ledger.LowLODLimit,
		HardLimit:          s.Ledger.HardLimit,
	}
}

// NewResidencyCheck builds the storage record of one residency query.
func NewResidencyCheck(tick uint64, point core.Position3D, radius float64, dim core.Dimension, loaded bool, trace *residency.Trace) core.ResidencyCheck {
	check := core.ResidencyCheck{
		Time:      time.Now().UTC(),
		Tick:      tick,
		Point:     point,
		Radius:    radius,
		Dimension: dim,
		Loaded:    loaded,
	}
	if trace != nil {
		check.Trace = trace.Strings()
	}
	return check
}
