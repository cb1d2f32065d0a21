package sim

import (
	"slices"

	"github.com/objectstream/streamer/internal/spatial"
	"github.com/objectstream/streamer/pkg/core"
)

// DefaultCooldown is how many steps an object stays out after StreamOutForABit.
const DefaultCooldown = 5

// LimitChecks are the admission callbacks the world consults before creating objects.
// Nil checks never report a limit.
type LimitChecks struct {
	Object func() bool
	LowLOD func() bool
	Hard   func() bool
}

func (l LimitChecks) soft(lowLOD bool) bool {
	check := l.Object
	if lowLOD {
		check = l.LowLOD
	}
	return check != nil && check()
}

func (l LimitChecks) hard() bool {
	return l.Hard != nil && l.Hard()
}

// Camera is the streaming focus.
type Camera struct {
	Position       core.Position3D
	Dimension      core.Dimension
	StreamDistance float64
}

// StepResult counts what one Step did.
type StepResult struct {
	StreamedIn  int
	StreamedOut int
	Refused     int
	Pending     int
}

type entity struct {
	id  core.ElementID
	typ core.EntityType
}

func (e entity) ID() core.ElementID    { return e.id }
func (e entity) Type() core.EntityType { return e.typ }

// World owns the simulated host state.
type World struct {
	Catalog *Catalog
	Pools   *Pools
	Index   *spatial.Grid

	hooks    core.LifecycleHooks
	limits   LimitChecks
	cooldown int

	objects []*Object
	byID    map[core.ElementID]*Object
}

// NewWorld creates a world over catalog and pools with a grid of the given cell size.
func NewWorld(catalog *Catalog, pools *Pools, cellSize float64) *World {
	return &World{
		Catalog:  catalog,
		Pools:    pools,
		Index:    spatial.NewGrid(cellSize),
		cooldown: DefaultCooldown,
		byID:     make(map[core.ElementID]*Object),
	}
}

// Bind attaches the lifecycle hooks and admission callbacks.
func (w *World) Bind(hooks core.LifecycleHooks, limits LimitChecks) {
	w.hooks = hooks
	w.limits = limits
}

// SetCooldown sets the StreamOutForABit cooldown in steps.
func (w *World) SetCooldown(steps int) {
	w.cooldown = max(steps, 0)
}

// Spawn places a new object in the world. Spawning an existing id returns the
// existing object.
func (w *World) Spawn(spec ObjectSpec) *Object {
	if o, ok := w.byID[spec.ID]; ok {
		return o
	}
	o := &Object{spec: spec, world: w}
	w.objects = append(w.objects, o)
	w.byID[spec.ID] = o
	w.Index.Insert(o, o.Box())
	return o
}

// AddEntity places a non-object entity in the spatial index.
func (w *World) AddEntity(id core.ElementID, typ core.EntityType, pos core.Position3D, radius float64) {
	w.Index.Insert(entity{id: id, typ: typ}, core.BoxAround(pos, radius))
}

// Object resolves a spawned object.
func (w *World) Object(id core.ElementID) (*Object, bool) {
	o, ok := w.byID[id]
	return o, ok
}

// Objects returns the live objects in spawn order.
func (w *World) Objects() []*Object {
	w.prune()
	return slices.Clone(w.objects)
}

// Step runs one streamer pass: objects out of range leave, then candidates in range
// enter nearest first while the admission callbacks allow it.
func (w *World) Step(cam Camera) StepResult {
	var res StepResult
	w.prune()

	rangeSq := cam.StreamDistance * cam.StreamDistance
	var candidates []*Object
	for _, o := range w.objects {
		if o.cooldown > 0 {
			o.cooldown--
		}
		wanted := o.spec.Dimension == cam.Dimension &&
			o.DistanceToBoundingBoxSquared(cam.Position) <= rangeSq
		switch {
		case !wanted && o.streamedIn:
			o.streamOut()
			res.StreamedOut++
		case wanted && o.streamedIn && !o.gameObject:
			if !o.create() {
				res.Pending++
			}
		case wanted && !o.streamedIn && o.cooldown == 0:
			candidates = append(candidates, o)
		}
	}

	slices.SortStableFunc(candidates, func(a, b *Object) int {
		da := a.DistanceToBoundingBoxSquared(cam.Position)
		db := b.DistanceToBoundingBoxSquared(cam.Position)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})
	for _, o := range candidates {
		if w.limits.soft(o.spec.LowLOD) {
			res.Refused++
			continue
		}
		if o.streamIn() {
			res.StreamedIn++
		} else {
			res.Pending++
		}
	}
	return res
}

func (w *World) prune() {
	w.objects = slices.DeleteFunc(w.objects, func(o *Object) bool {
		if o.destroyed {
			delete(w.byID, o.spec.ID)
			return true
		}
		return false
	})
}
