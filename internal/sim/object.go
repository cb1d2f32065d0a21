package sim

import (
	"github.com/objectstream/streamer/pkg/core"
)

// ObjectSpec describes an object to spawn.
type ObjectSpec struct {
	ID        core.ElementID
	Model     core.ModelID
	Position  core.Position3D
	Radius    float64
	Dimension core.Dimension
	LowLOD    bool
}

// Object implements core.Object on top of a World.
type Object struct {
	spec  ObjectSpec
	world *World

	streamedIn bool
	gameObject bool
	destroyed  bool

	cooldown int
	pulses   int
}

func (o *Object) ID() core.ElementID        { return o.spec.ID }
func (o *Object) Type() core.EntityType     { return core.EntityObject }
func (o *Object) Model() core.ModelID       { return o.spec.Model }
func (o *Object) Dimension() core.Dimension { return o.spec.Dimension }
func (o *Object) IsLowLOD() bool            { return o.spec.LowLOD }
func (o *Object) HasGameObject() bool       { return o.gameObject }
func (o *Object) IsStreamedIn() bool        { return o.streamedIn }

func (o *Object) ModelLoaded() bool {
	return o.world.Catalog.loaded(o.spec.Model)
}

// Position returns the object's centre.
func (o *Object) Position() core.Position3D {
	return o.spec.Position
}

// Box returns the object's axis-aligned bounding box.
func (o *Object) Box() core.Box {
	return core.BoxAround(o.spec.Position, o.spec.Radius)
}

func (o *Object) DistanceToBoundingBoxSquared(p core.Position3D) float64 {
	return o.Box().DistanceSquared(p)
}

// Pulses returns how many times StreamedInPulse ran.
func (o *Object) Pulses() int {
	return o.pulses
}

// Destroyed reports whether Destroy ran.
func (o *Object) Destroyed() bool {
	return o.destroyed
}

func (o *Object) StreamedInPulse() {
	o.pulses++
}

// StreamOutForABit streams the object out and keeps it out for the world's cooldown.
func (o *Object) StreamOutForABit() {
	o.streamOut()
	o.cooldown = o.world.cooldown
}

func (o *Object) Destroy() {
	if o.destroyed {
		return
	}
	o.streamOut()
	o.destroyed = true
	o.world.Index.Remove(o)
	if o.world.hooks != nil {
		o.world.hooks.RemoveFromLists(o)
	}
}

// DropGameObject releases the game object without notifying the hooks, leaving the
// object resident but unbacked.
func (o *Object) DropGameObject() {
	if o.gameObject {
		o.gameObject = false
		o.world.Pools.release()
	}
}

// streamIn marks the object streamed in and creates its game object when the model is
// loaded and the host has room.
func (o *Object) streamIn() bool {
	o.streamedIn = true
	return o.create()
}

func (o *Object) create() bool {
	if o.gameObject {
		return true
	}
	if !o.ModelLoaded() || o.world.limits.hard() {
		return false
	}
	o.gameObject = true
	o.world.Pools.acquire()
	if o.world.hooks != nil {
		o.world.hooks.OnCreation(o)
	}
	return true
}

func (o *Object) streamOut() {
	if !o.streamedIn && !o.gameObject {
		return
	}
	o.streamedIn = false
	if o.gameObject {
		o.gameObject = false
		o.world.Pools.release()
		if o.world.hooks != nil {
			o.world.hooks.OnDestruction(o)
		}
	}
}
