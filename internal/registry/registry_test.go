package registry

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectstream/streamer/pkg/core"
)

type fakeObject struct {
	id       core.ElementID
	typ      core.EntityType
	model    core.ModelID
	lowLOD   bool
	streamed bool

	hooks      core.LifecycleHooks
	panics     bool
	streamOuts int
	destroyed  bool
}

func newObject(id core.ElementID, lowLOD bool) *fakeObject {
	return &fakeObject{id: id, typ: core.EntityObject, lowLOD: lowLOD}
}

func (o *fakeObject) ID() core.ElementID                                   { return o.id }
func (o *fakeObject) Type() core.EntityType                                { return o.typ }
func (o *fakeObject) Model() core.ModelID                                  { return o.model }
func (o *fakeObject) Dimension() core.Dimension                            { return 0 }
func (o *fakeObject) IsLowLOD() bool                                       { return o.lowLOD }
func (o *fakeObject) HasGameObject() bool                                  { return o.streamed }
func (o *fakeObject) ModelLoaded() bool                                    { return true }
func (o *fakeObject) IsStreamedIn() bool                                   { return o.streamed }
func (o *fakeObject) DistanceToBoundingBoxSquared(core.Position3D) float64 { return 0 }
func (o *fakeObject) StreamedInPulse()                                     {}

func (o *fakeObject) StreamOutForABit() {
	o.streamOuts++
	o.streamed = false
}

func (o *fakeObject) Destroy() {
	o.destroyed = true
	if o.panics {
		panic("boom")
	}
	if o.hooks != nil {
		o.hooks.RemoveFromLists(o)
	}
}

func assertConsistent(t *testing.T, r *Registry) {
	t.Helper()
	require.NoError(t, r.CheckConsistency())
	for i, obj := range r.Residents() {
		assert.Equal(t, i, r.residentAt[obj.ID()])
	}
}

func TestRegistry_RegisterLookup(t *testing.T) {
	r := New(Dependencies{})
	obj := newObject(1, false)
	vehicle := &fakeObject{id: 2, typ: core.EntityVehicle}

	r.Register(obj)
	r.Register(vehicle)
	r.Register(newObject(1, true))

	got, ok := r.Lookup(1)
	require.True(t, ok)
	assert.Same(t, obj, got)

	_, ok = r.Lookup(2)
	assert.False(t, ok, "non-object entities are not returned")
	_, ok = r.Lookup(3)
	assert.False(t, ok)

	assert.True(t, r.Exists(obj))
	assert.False(t, r.Exists(newObject(1, false)), "same id, different object")
	assert.False(t, r.Exists(nil))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_OnCreationUnregistered(t *testing.T) {
	var buf bytes.Buffer
	changes := 0
	r := New(Dependencies{
		Logger:   slog.New(slog.NewTextHandler(&buf, nil)),
		OnChange: func() { changes++ },
	})
	r.Register(newObject(1, false))

	stray := newObject(2, true)
	r.OnCreation(stray)
	// same id as a registered object but a different instance
	r.OnCreation(newObject(1, false))
	r.OnCreation(nil)

	assert.Equal(t, 0, r.ResidentLen())
	assert.Equal(t, 0, r.LowLODCount())
	assert.False(t, r.IsResident(stray))
	assert.Equal(t, 0, changes)
	assert.Contains(t, buf.String(), "Ignoring creation of unregistered object")
	assertConsistent(t, r)
}

func TestRegistry_OnCreationIdempotent(t *testing.T) {
	changes := 0
	r := New(Dependencies{OnChange: func() { changes++ }})
	obj := newObject(1, false)
	r.Register(obj)

	r.OnCreation(obj)
	r.OnCreation(obj)

	assert.Equal(t, 1, r.StandardCount())
	assert.Equal(t, 0, r.LowLODCount())
	assert.Equal(t, 1, r.ResidentLen())
	assert.Equal(t, 2, changes)
	assertConsistent(t, r)
}

func TestRegistry_CountsTrackCategory(t *testing.T) {
	r := New(Dependencies{})
	objs := []*fakeObject{newObject(1, false), newObject(2, true), newObject(3, false), newObject(4, true)}
	for _, o := range objs {
		r.Register(o)
		r.OnCreation(o)
	}
	assert.Equal(t, 2, r.StandardCount())
	assert.Equal(t, 2, r.LowLODCount())

	// category is fixed at admission
	objs[1].lowLOD = false
	r.OnDestruction(objs[1])
	assert.Equal(t, 2, r.StandardCount())
	assert.Equal(t, 1, r.LowLODCount())

	r.OnDestruction(objs[0])
	r.OnDestruction(objs[0])
	assert.Equal(t, 1, r.StandardCount())
	assert.Equal(t, []core.Object{objs[2], objs[3]}, r.Residents())
	assertConsistent(t, r)
}

func TestRegistry_InvariantOverSequence(t *testing.T) {
	r := New(Dependencies{})
	objs := make([]*fakeObject, 8)
	for i := range objs {
		objs[i] = newObject(core.ElementID(i+1), i%3 == 0)
		r.Register(objs[i])
	}

	steps := []struct {
		create bool
		idx    int
	}{
		{true, 0}, {true, 1}, {true, 2}, {false, 1}, {true, 3}, {true, 3},
		{false, 0}, {true, 6}, {false, 5}, {true, 7}, {false, 2}, {true, 1},
	}
	for _, s := range steps {
		if s.create {
			r.OnCreation(objs[s.idx])
		} else {
			r.OnDestruction(objs[s.idx])
		}
		assertConsistent(t, r)
		assert.Equal(t, r.ResidentLen(), r.StandardCount()+r.LowLODCount())
	}
	assert.Equal(t, []core.Object{objs[3], objs[6], objs[7], objs[1]}, r.Residents())
}

func TestRegistry_Deregister(t *testing.T) {
	r := New(Dependencies{})
	obj := newObject(1, true)
	r.Register(obj)
	r.OnCreation(obj)

	r.Deregister(obj)
	assert.False(t, r.Exists(obj))
	assert.False(t, r.IsResident(obj))
	assert.Zero(t, r.LowLODCount())
}

func TestRegistry_RemoveFromLists(t *testing.T) {
	r := New(Dependencies{})
	obj := newObject(1, false)
	r.Register(obj)
	r.OnCreation(obj)

	r.RemoveFromLists(obj)
	assert.False(t, r.Exists(obj))
	assert.False(t, r.IsResident(obj))
	assert.Zero(t, r.StandardCount())
}

func TestRegistry_RemoveFromListsGuarded(t *testing.T) {
	r := New(Dependencies{})
	obj := newObject(1, false)
	r.Register(obj)
	r.OnCreation(obj)

	r.withoutRemoval(func() {
		assert.False(t, r.CanRemove())
		r.RemoveFromLists(obj)
	})
	assert.True(t, r.CanRemove())
	assert.True(t, r.Exists(obj), "arena entry kept while removal is disabled")
	assert.False(t, r.IsResident(obj))
}

func TestRegistry_DeleteAll(t *testing.T) {
	r := New(Dependencies{})
	objs := []*fakeObject{newObject(1, false), newObject(2, true), newObject(3, false)}
	for _, o := range objs {
		o.hooks = r
		r.Register(o)
		r.OnCreation(o)
	}

	r.DeleteAll()

	assert.Zero(t, r.Len())
	assert.Zero(t, r.ResidentLen())
	assert.Zero(t, r.StandardCount())
	assert.Zero(t, r.LowLODCount())
	assert.True(t, r.CanRemove())
	for _, o := range objs {
		assert.True(t, o.destroyed)
	}
}

func TestRegistry_DeleteAllSurvivesPanics(t *testing.T) {
	r := New(Dependencies{})
	bad := newObject(1, false)
	bad.panics = true
	good := newObject(2, true)
	good.hooks = r
	for _, o := range []*fakeObject{bad, good} {
		r.Register(o)
		r.OnCreation(o)
	}

	assert.NotPanics(t, r.DeleteAll)
	assert.True(t, good.destroyed)
	assert.Zero(t, r.Len())
	assert.Zero(t, r.ResidentLen(), "residual residents are dropped")
	assert.True(t, r.CanRemove())
	assertConsistent(t, r)
}

func TestRegistry_Each(t *testing.T) {
	r := New(Dependencies{})
	for i := core.ElementID(1); i <= 3; i++ {
		r.Register(newObject(i, i == 2))
	}

	seen := map[core.ElementID]bool{}
	r.Each(func(obj core.Object) { seen[obj.ID()] = true })
	assert.Equal(t, map[core.ElementID]bool{1: true, 2: true, 3: true}, seen)
}

func TestRegistry_Restream(t *testing.T) {
	r := New(Dependencies{})
	a := newObject(1, false)
	a.model, a.streamed = 1337, true
	b := newObject(2, false)
	b.model, b.streamed = 1337, false
	c := newObject(3, false)
	c.model, c.streamed = 2000, true
	for _, o := range []*fakeObject{a, b, c} {
		r.Register(o)
	}

	r.Restream(1337)
	assert.Equal(t, 1, a.streamOuts)
	assert.Zero(t, b.streamOuts)
	assert.Zero(t, c.streamOuts)

	a.streamed = true
	r.RestreamAll()
	assert.Equal(t, 2, a.streamOuts)
	assert.Zero(t, b.streamOuts)
	assert.Equal(t, 1, c.streamOuts)
}

func TestRegistry_Reconcile(t *testing.T) {
	r := New(Dependencies{})
	obj := newObject(1, false)
	r.Register(obj)
	r.OnCreation(obj)

	r.standard = 5
	require.ErrorIs(t, r.CheckConsistency(), ErrCountMismatch)

	r.Reconcile()
	assertConsistent(t, r)
	assert.Equal(t, 1, r.StandardCount())
}
