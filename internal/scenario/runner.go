package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/objectstream/streamer/internal/geo"
	"github.com/objectstream/streamer/internal/manager"
	"github.com/objectstream/streamer/internal/recorder"
	"github.com/objectstream/streamer/internal/residency"
	"github.com/objectstream/streamer/internal/sim"
	"github.com/objectstream/streamer/pkg/core"
)

// Recorder receives the per-pulse status and the probe outcomes.
type Recorder interface {
	OnPulse(status manager.Status)
	RecordResidency(check core.ResidencyCheck)
}

// ProbeResult is the outcome of one residency probe.
type ProbeResult struct {
	Tick   uint64
	Probe  ProbeSpec
	Loaded bool
	Trace  []string
}

// Result summarizes a run.
type Result struct {
	Ticks       int
	StreamedIn  int
	StreamedOut int
	Refused     int
	Pending     int
	Probes      []ProbeResult
	Final       manager.Status
}

// Runner drives a built scenario through a manager one tick at a time.
type Runner struct {
	scenario *Scenario
	setup    *Setup
	mgr      *manager.Manager
	rec      Recorder
	logger   *slog.Logger
}

// NewRunner binds the world to mgr and registers every spawned object. rec may be nil.
func NewRunner(s *Scenario, setup *Setup, mgr *manager.Manager, rec Recorder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	setup.World.Bind(mgr, sim.LimitChecks{
		Object: mgr.ObjectLimitCheck(),
		LowLOD: mgr.LowLODObjectLimitCheck(),
		Hard:   mgr.HardObjectLimitCheck(),
	})
	for _, o := range setup.World.Objects() {
		mgr.Register(o)
	}
	return &Runner{
		scenario: s,
		setup:    setup,
		mgr:      mgr,
		rec:      rec,
		logger:   logger.With("scenario", s.Name),
	}
}

// Run executes every tick of the scenario, waiting interval between ticks when it
// is positive. A cancelled context stops the run after the current tick and the
// partial result is returned with the context error.
func (r *Runner) Run(ctx context.Context, interval time.Duration) (Result, error) {
	var res Result

	var ticker *time.Ticker
	if interval > 0 {
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for tick := 1; tick <= r.scenario.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			res.Final = r.mgr.Status()
			return res, err
		}

		r.Step(tick, &res)
		res.Ticks = tick

		if ticker != nil && tick < r.scenario.Ticks {
			select {
			case <-ctx.Done():
				res.Final = r.mgr.Status()
				return res, ctx.Err()
			case <-ticker.C:
			}
		}
	}

	res.Final = r.mgr.Status()
	r.logger.Info("Scenario complete",
		"ticks", res.Ticks,
		"streamedIn", res.StreamedIn,
		"refused", res.Refused,
		"resident", res.Final.Resident,
		"warned", res.Final.Warned,
	)
	return res, nil
}

// Step runs one tick: scripted events, the streamer step, the manager pulse, then
// the probes. Counts are added to res.
func (r *Runner) Step(tick int, res *Result) {
	for _, e := range r.scenario.EventsAt(tick) {
		r.apply(e)
	}

	step := r.setup.World.Step(r.scenario.CameraAt(tick))
	res.StreamedIn += step.StreamedIn
	res.StreamedOut += step.StreamedOut
	res.Refused += step.Refused
	res.Pending += step.Pending

	r.mgr.DoPulse()
	if r.rec != nil {
		r.rec.OnPulse(r.mgr.Status())
	}

	for _, p := range r.scenario.ProbesAt(tick) {
		pr, err := r.Probe(p)
		if err != nil {
			r.logger.Error("Skipping residency probe", "tick", tick, "error", err)
			continue
		}
		res.Probes = append(res.Probes, pr)
	}
}

// Probe runs one residency query and hands it to the recorder. Probes with an
// unparsable point or a bad radius are rejected before querying.
func (r *Runner) Probe(p ProbeSpec) (ProbeResult, error) {
	point, err := geo.Position3DFromString(p.Point)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe point %q: %w", p.Point, err)
	}
	if err := CheckRadius(p.Radius); err != nil {
		return ProbeResult{}, fmt.Errorf("probe at %q: %w", p.Point, err)
	}

	var trace *residency.Trace
	if p.Trace {
		trace = &residency.Trace{}
	}
	loaded := r.mgr.AreObjectsAroundPointLoaded(point, p.Radius, core.Dimension(p.Dimension), trace)

	check := recorder.NewResidencyCheck(r.mgr.Tick(), point, p.Radius, core.Dimension(p.Dimension), loaded, trace)
	if r.rec != nil {
		r.rec.RecordResidency(check)
	}
	return ProbeResult{Tick: check.Tick, Probe: p, Loaded: loaded, Trace: check.Trace}, nil
}

func (r *Runner) apply(e EventSpec) {
	model := core.ModelID(e.Model)
	switch e.Action {
	case ActionUnload:
		r.setup.Catalog.SetLoaded(model, false)
	case ActionLoad:
		r.setup.Catalog.SetLoaded(model, true)
	case ActionRestream:
		r.mgr.Restream(model)
	case ActionRestreamAll:
		r.mgr.RestreamAll()
	case ActionDeleteAll:
		r.mgr.DeleteAll()
	case ActionDestroy, ActionDrop:
		o, ok := r.setup.World.Object(core.ElementID(e.ID))
		if !ok {
			r.logger.Warn("Event for unknown object", "action", e.Action, "id", e.ID, "tick", e.Tick)
			return
		}
		if e.Action == ActionDestroy {
			o.Destroy()
		} else {
			o.DropGameObject()
		}
	}
	r.logger.Debug("Applied event", "action", e.Action, "tick", e.Tick, "model", e.Model, "id", e.ID)
}
