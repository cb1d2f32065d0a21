// Package limits keeps the object admission ledger: live category counts, snapshots of
// the host's shared pool occupancy, and the soft/hard ceiling checks built on them.
package limits

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/objectstream/streamer/pkg/core"
)

// LimitWarningCode is the report log code for shared pool exhaustion.
const LimitWarningCode = 7430

// Counts supplies the live resident counts per category.
type Counts interface {
	StandardCount() int
	LowLODCount() int
}

// Dependencies holds the collaborators of a Ledger.
type Dependencies struct {
	Pools  core.PoolService
	Counts Counts
	Sink   core.DiagnosticSink
	Logger *slog.Logger
}

// Snapshot is an immutable copy of the ledger taken at the last Refresh.
type Snapshot struct {
	Standard           int
	LowLOD             int
	EntryInfoNodes     int
	PointerSingleLinks int
	PointerDoubleLinks int
	ObjectLimit        bool
	LowLODLimit        bool
	HardLimit          bool
}

// Ledger is not safe for concurrent use except for Snapshot, which may be read from
// any goroutine.
type Ledger struct {
	deps   Dependencies
	limits Limits

	used    [3]int
	warned  bool
	warning string

	published atomic.Pointer[Snapshot]
}

// New creates a Ledger. The limits must already be validated.
func New(deps Dependencies, l Limits) *Ledger {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	led := &Ledger{deps: deps, limits: l}
	led.published.Store(&Snapshot{})
	return led
}

// Limits returns the configured ceilings.
func (l *Ledger) Limits() Limits {
	return l.limits
}

// Refresh re-reads the shared pool occupancy counters and publishes a snapshot.
func (l *Ledger) Refresh() {
	for i, pool := range core.Pools {
		l.used[i] = l.deps.Pools.UsedCount(pool)
	}

	hard := l.IsHardObjectLimitReached()
	snap := &Snapshot{
		Standard:           l.deps.Counts.StandardCount(),
		LowLOD:             l.deps.Counts.LowLODCount(),
		EntryInfoNodes:     l.used[0],
		PointerSingleLinks: l.used[1],
		PointerDoubleLinks: l.used[2],
		HardLimit:          hard,
	}
	snap.ObjectLimit = hard || snap.Standard >= l.limits.MaxStandard
	snap.LowLODLimit = hard || snap.LowLOD >= l.limits.MaxLowLOD
	l.published.Store(snap)
}

// Snapshot returns the state published by the last Refresh.
func (l *Ledger) Snapshot() Snapshot {
	return *l.published.Load()
}

// IsObjectLimitReached reports whether another standard object may not be admitted.
func (l *Ledger) IsObjectLimitReached() bool {
	return l.IsHardObjectLimitReached() || l.deps.Counts.StandardCount() >= l.limits.MaxStandard
}

// IsLowLODObjectLimitReached reports whether another low-LOD object may not be admitted.
func (l *Ledger) IsLowLODObjectLimitReached() bool {
	return l.IsHardObjectLimitReached() || l.deps.Counts.LowLODCount() >= l.limits.MaxLowLOD
}

// IsHardObjectLimitReached reports whether a ceiling shared by both categories is
// exhausted: the global object count, any of the three host pools, or the host's
// own object count.
func (l *Ledger) IsHardObjectLimitReached() bool {
	if l.deps.Counts.StandardCount()+l.deps.Counts.LowLODCount() >= l.limits.MaxObjects {
		return true
	}

	ceilings := l.limits.poolCeilings()
	for i := range l.used {
		if l.used[i] >= ceilings[i] {
			if !l.warned {
				l.warnPoolExhausted()
			}
			return true
		}
	}

	return l.deps.Pools.TotalObjectCount() >= l.limits.MaxObjects
}

// Warned reports whether the pool exhaustion warning has been emitted.
func (l *Ledger) Warned() bool {
	return l.warned
}

// Warning returns the pool exhaustion message, or "" if it has not fired.
func (l *Ledger) Warning() string {
	return l.warning
}

func (l *Ledger) warnPoolExhausted() {
	l.warned = true
	l.warning = fmt.Sprintf(
		"object manager reached limit -"+
			" ENTRY_INFO_NODES:%d/%d"+
			" POINTER_SINGLE_LINKS:%d/%d"+
			" POINTER_DOUBLE_LINKS:%d/%d",
		l.used[0], l.limits.MaxEntryInfoNodes,
		l.used[1], l.limits.MaxPointerSingleLinks,
		l.used[2], l.limits.MaxPointerDoubleLinks,
	)

	l.deps.Logger.Warn("Shared pool limit reached",
		"entryInfoNodes", l.used[0],
		"pointerSingleLinks", l.used[1],
		"pointerDoubleLinks", l.used[2],
	)
	if l.deps.Sink != nil {
		l.deps.Sink.Echo(l.warning)
		l.deps.Sink.ReportOnce(LimitWarningCode, l.warning)
	}
}
