// Package manager is the object streaming manager: it wires the registry, the limit
// ledger, model classification and the residency query behind one facade that the
// host drives from its simulation thread.
package manager

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/objectstream/streamer/internal/limits"
	"github.com/objectstream/streamer/internal/modelinfo"
	"github.com/objectstream/streamer/internal/registry"
	"github.com/objectstream/streamer/internal/residency"
	"github.com/objectstream/streamer/pkg/core"
)

// Dependencies holds the host services a Manager needs.
type Dependencies struct {
	Catalog core.ModelCatalog
	Pools   core.PoolService
	Index   core.SpatialIndex
	Sink    core.DiagnosticSink
	Logger  *slog.Logger
	Limits  limits.Limits
}

// Status is the state published after every pulse. It is safe to read from any
// goroutine.
type Status struct {
	Time       time.Time
	Tick       uint64
	Registered int
	Resident   int
	Ledger     limits.Snapshot
	Warned     bool
	Warning    string
}

// Manager implements core.LifecycleHooks. Everything except Status must be called
// from the simulation goroutine.
type Manager struct {
	logger *slog.Logger

	registry   *registry.Registry
	ledger     *limits.Ledger
	classifier *modelinfo.Classifier
	query      *residency.Query

	tick   uint64
	status atomic.Pointer[Status]
}

var _ core.LifecycleHooks = (*Manager)(nil)

// New validates the limits and builds a Manager.
func New(deps Dependencies) (*Manager, error) {
	if deps.Catalog == nil || deps.Pools == nil || deps.Index == nil {
		return nil, fmt.Errorf("manager: catalog, pools and index are required")
	}
	if err := deps.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("manager: %w", err)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	m := &Manager{
		logger:     deps.Logger.With("component", "objects"),
		classifier: modelinfo.NewClassifier(deps.Catalog),
		query:      residency.NewQuery(deps.Index),
	}
	m.registry = registry.New(registry.Dependencies{
		Logger:   m.logger,
		OnChange: func() { m.ledger.Refresh() },
	})
	m.ledger = limits.New(limits.Dependencies{
		Pools:  deps.Pools,
		Counts: m.registry,
		Sink:   deps.Sink,
		Logger: m.logger,
	}, deps.Limits)

	m.ledger.Refresh()
	m.publish()
	return m, nil
}

// Ledger exposes the limit ledger.
func (m *Manager) Ledger() *limits.Ledger {
	return m.ledger
}

// Get resolves id to a registered object.
func (m *Manager) Get(id core.ElementID) (core.Object, bool) {
	return m.registry.Lookup(id)
}

// Exists reports whether obj is registered.
func (m *Manager) Exists(obj core.Object) bool {
	return m.registry.Exists(obj)
}

// Register adds a newly created object entity.
func (m *Manager) Register(obj core.Object) {
	m.registry.Register(obj)
}

// Deregister removes obj from the manager.
func (m *Manager) Deregister(obj core.Object) {
	m.registry.Deregister(obj)
	m.ledger.Refresh()
}

func (m *Manager) OnCreation(obj core.Object) {
	m.registry.OnCreation(obj)
}

func (m *Manager) OnDestruction(obj core.Object) {
	m.registry.OnDestruction(obj)
}

func (m *Manager) RemoveFromLists(obj core.Object) {
	m.registry.RemoveFromLists(obj)
}

// DeleteAll destroys every registered object.
func (m *Manager) DeleteAll() {
	n := m.registry.Len()
	m.registry.DeleteAll()
	m.ledger.Refresh()
	m.publish()
	m.logger.Info("Deleted all objects", "count", n)
}

// Count returns the number of registered objects.
func (m *Manager) Count() int {
	return m.registry.Len()
}

// ResidentCount returns the number of streamed-in objects.
func (m *Manager) ResidentCount() int {
	return m.registry.ResidentLen()
}

func (m *Manager) IsValidModel(id core.ModelID) bool {
	return m.classifier.IsValidModel(id)
}

func (m *Manager) IsBreakableModel(id core.ModelID) bool {
	return modelinfo.IsBreakableModel(id)
}

func (m *Manager) IsObjectLimitReached() bool {
	return m.ledger.IsObjectLimitReached()
}

func (m *Manager) IsLowLODObjectLimitReached() bool {
	return m.ledger.IsLowLODObjectLimitReached()
}

func (m *Manager) IsHardObjectLimitReached() bool {
	return m.ledger.IsHardObjectLimitReached()
}

// ObjectLimitCheck returns the standard admission callback bound to m.
func (m *Manager) ObjectLimitCheck() func() bool {
	return m.IsObjectLimitReached
}

// LowLODObjectLimitCheck returns the low-LOD admission callback bound to m.
func (m *Manager) LowLODObjectLimitCheck() func() bool {
	return m.IsLowLODObjectLimitReached
}

// HardObjectLimitCheck returns the game object creation callback bound to m.
func (m *Manager) HardObjectLimitCheck() func() bool {
	return m.IsHardObjectLimitReached
}

// AreObjectsAroundPointLoaded reports whether every object within radius of point in
// dim is fully streamed in. trace may be nil.
func (m *Manager) AreObjectsAroundPointLoaded(point core.Position3D, radius float64, dim core.Dimension, trace *residency.Trace) bool {
	return m.query.AreObjectsAroundPointLoaded(point, radius, dim, trace)
}

// Restream streams out every streamed-in object using model.
func (m *Manager) Restream(model core.ModelID) {
	m.registry.Restream(model)
}

// RestreamAll streams out every streamed-in object.
func (m *Manager) RestreamAll() {
	m.registry.RestreamAll()
}

// Status returns the state published by the last pulse.
func (m *Manager) Status() Status {
	return *m.status.Load()
}

func (m *Manager) publish() {
	m.status.Store(&Status{
		Time:       time.Now(),
		Tick:       m.tick,
		Registered: m.registry.Len(),
		Resident:   m.registry.ResidentLen(),
		Ledger:     m.ledger.Snapshot(),
		Warned:     m.ledger.Warned(),
		Warning:    m.ledger.Warning(),
	})
}
