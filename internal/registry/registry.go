// Package registry owns every known object entity and tracks which of them are
// currently streamed in. It is driven from the simulation thread only.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/objectstream/streamer/pkg/core"
)

// ErrCountMismatch is returned by CheckConsistency when the category counters no
// longer add up to the resident list.
var ErrCountMismatch = errors.New("resident count mismatch")

// Dependencies holds the collaborators of a Registry.
type Dependencies struct {
	Logger *slog.Logger
	// OnChange runs after every OnCreation and OnDestruction call.
	OnChange func()
}

type resident struct {
	obj    core.Object
	lowLOD bool
}

// Registry is the arena of object entities plus the ordered resident subset.
type Registry struct {
	deps Dependencies

	all        map[core.ElementID]core.Object
	residents  []resident
	residentAt map[core.ElementID]int

	standard int
	lowLOD   int

	// canRemove is false while DeleteAll tears the arena down
	canRemove bool
}

// New creates an empty Registry.
func New(deps Dependencies) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Registry{
		deps:       deps,
		all:        make(map[core.ElementID]core.Object),
		residentAt: make(map[core.ElementID]int),
		canRemove:  true,
	}
}

// Register adds obj to the arena. Registering the same id twice replaces nothing.
func (r *Registry) Register(obj core.Object) {
	if _, ok := r.all[obj.ID()]; ok {
		return
	}
	r.all[obj.ID()] = obj
}

// Deregister removes obj from the arena and from the resident list.
func (r *Registry) Deregister(obj core.Object) {
	if r.Exists(obj) {
		delete(r.all, obj.ID())
	}
	r.removeResident(obj)
}

// Lookup resolves id to an object entity. Unknown ids and entities of any other type
// are reported as not found.
func (r *Registry) Lookup(id core.ElementID) (core.Object, bool) {
	obj, ok := r.all[id]
	if !ok || obj.Type() != core.EntityObject {
		return nil, false
	}
	return obj, true
}

// Exists reports whether obj itself is held by the arena.
func (r *Registry) Exists(obj core.Object) bool {
	if obj == nil {
		return false
	}
	held, ok := r.all[obj.ID()]
	return ok && held == obj
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	return len(r.all)
}

// ResidentLen returns the number of streamed-in objects.
func (r *Registry) ResidentLen() int {
	return len(r.residents)
}

// StandardCount returns the number of resident standard objects.
func (r *Registry) StandardCount() int {
	return r.standard
}

// LowLODCount returns the number of resident low-LOD objects.
func (r *Registry) LowLODCount() int {
	return r.lowLOD
}

// IsResident reports whether obj is in the resident list.
func (r *Registry) IsResident(obj core.Object) bool {
	_, ok := r.residentAt[obj.ID()]
	return ok
}

// Residents returns the resident objects in admission order. The slice is a copy.
func (r *Registry) Residents() []core.Object {
	out := make([]core.Object, len(r.residents))
	for i, res := range r.residents {
		out[i] = res.obj
	}
	return out
}

// Each calls fn for every registered object in no particular order. fn must not
// register or deregister objects.
func (r *Registry) Each(fn func(core.Object)) {
	for _, obj := range r.all {
		fn(obj)
	}
}

// OnCreation records obj as streamed in. Calling it again without an intervening
// OnDestruction leaves the counts unchanged. Objects that were never registered
// are logged and ignored so residents stay a subset of the arena.
func (r *Registry) OnCreation(obj core.Object) {
	if obj == nil {
		return
	}
	if !r.Exists(obj) {
		r.deps.Logger.Warn("Ignoring creation of unregistered object", "id", obj.ID(), "model", obj.Model())
		return
	}
	if !r.IsResident(obj) {
		low := obj.IsLowLOD()
		if low {
			r.lowLOD++
		} else {
			r.standard++
		}
		r.residentAt[obj.ID()] = len(r.residents)
		r.residents = append(r.residents, resident{obj: obj, lowLOD: low})
	}
	r.changed()
}

// OnDestruction records obj as streamed out.
func (r *Registry) OnDestruction(obj core.Object) {
	r.removeResident(obj)
	r.changed()
}

// RemoveFromLists unlinks obj when it is destroyed outside the normal streaming
// notifications. Arena removal is skipped while DeleteAll is running.
func (r *Registry) RemoveFromLists(obj core.Object) {
	if r.canRemove && r.Exists(obj) {
		delete(r.all, obj.ID())
	}
	r.removeResident(obj)
}

// DeleteAll destroys every registered object and empties the registry.
func (r *Registry) DeleteAll() {
	r.withoutRemoval(func() {
		for id, obj := range r.all {
			r.destroy(id, obj)
		}
	})
	clear(r.all)

	if n := len(r.residents); n > 0 {
		r.deps.Logger.Warn("Objects still resident after teardown, dropping", "count", n)
		r.residents = r.residents[:0]
		clear(r.residentAt)
		r.standard, r.lowLOD = 0, 0
	}
}

// withoutRemoval runs fn with arena removal disabled and always re-enables it.
func (r *Registry) withoutRemoval(fn func()) {
	r.canRemove = false
	defer func() { r.canRemove = true }()
	fn()
}

func (r *Registry) destroy(id core.ElementID, obj core.Object) {
	defer func() {
		if rec := recover(); rec != nil {
			r.deps.Logger.Error("Object teardown failed", "id", id, "panic", rec)
		}
	}()
	obj.Destroy()
}

// CanRemove reports whether arena removal is currently allowed.
func (r *Registry) CanRemove() bool {
	return r.canRemove
}

// Restream streams out every streamed-in object using model so the streamer
// brings it back with fresh model data.
func (r *Registry) Restream(model core.ModelID) {
	r.restream(func(obj core.Object) bool { return obj.Model() == model })
}

// RestreamAll streams out every streamed-in object.
func (r *Registry) RestreamAll() {
	r.restream(func(core.Object) bool { return true })
}

func (r *Registry) restream(match func(core.Object) bool) {
	var targets []core.Object
	r.Each(func(obj core.Object) {
		if obj.IsStreamedIn() && match(obj) {
			targets = append(targets, obj)
		}
	})
	for _, obj := range targets {
		obj.StreamOutForABit()
	}
}

// CheckConsistency verifies that the category counters match the resident list.
func (r *Registry) CheckConsistency() error {
	if r.standard+r.lowLOD != len(r.residents) {
		return fmt.Errorf("%w: standard %d + low LOD %d != resident %d",
			ErrCountMismatch, r.standard, r.lowLOD, len(r.residents))
	}
	return nil
}

// Reconcile recomputes the category counters from the resident list.
func (r *Registry) Reconcile() {
	r.standard, r.lowLOD = 0, 0
	for _, res := range r.residents {
		if res.lowLOD {
			r.lowLOD++
		} else {
			r.standard++
		}
	}
}

func (r *Registry) removeResident(obj core.Object) {
	idx, ok := r.residentAt[obj.ID()]
	if !ok {
		return
	}
	if r.residents[idx].lowLOD {
		r.lowLOD--
	} else {
		r.standard--
	}

	delete(r.residentAt, obj.ID())
	r.residents = append(r.residents[:idx], r.residents[idx+1:]...)
	for i := idx; i < len(r.residents); i++ {
		r.residentAt[r.residents[i].obj.ID()] = i
	}
}

func (r *Registry) changed() {
	if r.deps.OnChange != nil {
		r.deps.OnChange()
	}
}
