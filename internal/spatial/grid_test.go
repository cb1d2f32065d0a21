package spatial

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectstream/streamer/pkg/core"
)

type testEntity struct {
	id  core.ElementID
	typ core.EntityType
}

func (e testEntity) ID() core.ElementID    { return e.id }
func (e testEntity) Type() core.EntityType { return e.typ }

func ids(entities []core.Entity) []core.ElementID {
	out := make([]core.ElementID, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestGrid_EmptyQuery(t *testing.T) {
	g := NewGrid(50)
	assert.Empty(t, g.SphereQuery(core.Sphere{Radius: 1000}))
}

func TestGrid_InsertAndQuery(t *testing.T) {
	g := NewGrid(50)
	g.Insert(testEntity{1, core.EntityObject}, core.BoxAround(core.Position3D{X: 10, Y: 10}, 2))
	g.Insert(testEntity{2, core.EntityVehicle}, core.BoxAround(core.Position3D{X: 500, Y: 500}, 2))
	g.Insert(testEntity{3, core.EntityObject}, core.BoxAround(core.Position3D{X: -40, Y: 5}, 2))

	got := g.SphereQuery(core.Sphere{Center: core.Position3D{}, Radius: 50})
	assert.Equal(t, []core.ElementID{1, 3}, ids(got))
	assert.Equal(t, 3, g.Len())
}

func TestGrid_SpanningEntityReturnedOnce(t *testing.T) {
	g := NewGrid(10)
	g.Insert(testEntity{7, core.EntityObject}, core.BoxAround(core.Position3D{}, 45))

	got := g.SphereQuery(core.Sphere{Center: core.Position3D{X: 5}, Radius: 30})
	require.Len(t, got, 1)
	assert.Equal(t, core.ElementID(7), got[0].ID())
}

func TestGrid_OverIncludesCorners(t *testing.T) {
	g := NewGrid(100)
	// box corner lies outside the sphere but inside its bounding box
	g.Insert(testEntity{1, core.EntityObject}, core.BoxAround(core.Position3D{X: 9, Y: 9}, 1))

	sphere := core.Sphere{Radius: 10}
	got := g.SphereQuery(sphere)
	require.Len(t, got, 1)
	assert.Greater(t, core.BoxAround(core.Position3D{X: 9, Y: 9}, 1).DistanceSquared(sphere.Center), 0.0)
}

func TestGrid_ZSeparated(t *testing.T) {
	g := NewGrid(100)
	g.Insert(testEntity{1, core.EntityObject}, core.BoxAround(core.Position3D{Z: 500}, 5))
	assert.Empty(t, g.SphereQuery(core.Sphere{Radius: 20}))
}

func TestGrid_RemoveAndReinsert(t *testing.T) {
	g := NewGrid(25)
	e := testEntity{4, core.EntityObject}
	g.Insert(e, core.BoxAround(core.Position3D{}, 30))
	g.Remove(e)
	assert.Empty(t, g.SphereQuery(core.Sphere{Radius: 100}))
	assert.Empty(t, g.cells)

	g.Insert(e, core.BoxAround(core.Position3D{X: 300}, 1))
	g.Insert(e, core.BoxAround(core.Position3D{X: 600}, 1))
	assert.Empty(t, g.SphereQuery(core.Sphere{Center: core.Position3D{X: 300}, Radius: 5}))
	assert.Len(t, g.SphereQuery(core.Sphere{Center: core.Position3D{X: 600}, Radius: 5}), 1)
	assert.Equal(t, 1, g.Len())

	g.Remove(testEntity{99, core.EntityObject})
}

func TestNewGrid_DefaultCellSize(t *testing.T) {
	assert.Equal(t, DefaultCellSize, NewGrid(0).cellSize)
	assert.Equal(t, DefaultCellSize, NewGrid(-3).cellSize)
}

func TestGrid_HugeRadius(t *testing.T) {
	g := NewGrid(100)
	g.Insert(testEntity{1, core.EntityObject}, core.BoxAround(core.Position3D{X: 10}, 1))
	g.Insert(testEntity{2, core.EntityObject}, core.BoxAround(core.Position3D{X: 9e6}, 1))

	for _, r := range []float64{1e5, 1e7, 1e12, math.MaxFloat64} {
		got := g.SphereQuery(core.Sphere{Radius: r})
		if r < 9e6 {
			assert.Equal(t, []core.ElementID{1}, ids(got), "radius %g", r)
		} else {
			assert.Equal(t, []core.ElementID{1, 2}, ids(got), "radius %g", r)
		}
	}
}

func TestGrid_NonFiniteRadius(t *testing.T) {
	g := NewGrid(100)
	g.Insert(testEntity{1, core.EntityObject}, core.BoxAround(core.Position3D{X: 10}, 1))
	g.Insert(testEntity{2, core.EntityObject}, core.BoxAround(core.Position3D{Y: -5e5}, 1))

	assert.Equal(t, []core.ElementID{1, 2}, ids(g.SphereQuery(core.Sphere{Radius: math.Inf(1)})))
	assert.Empty(t, g.SphereQuery(core.Sphere{Radius: math.NaN()}))
}

func TestGrid_WideEntity(t *testing.T) {
	g := NewGrid(10)
	wide := testEntity{5, core.EntityObject}
	g.Insert(wide, core.BoxAround(core.Position3D{}, 1e6))
	g.Insert(testEntity{6, core.EntityObject}, core.BoxAround(core.Position3D{X: 3}, 1))
	// enough occupied cells that small queries walk buckets instead of scanning
	for i := 0; i < 10; i++ {
		g.Insert(testEntity{core.ElementID(10 + i), core.EntityObject}, core.BoxAround(core.Position3D{X: 1000 + 50*float64(i)}, 1))
	}

	assert.Len(t, g.wide, 1)
	assert.Equal(t, []core.ElementID{5, 6}, ids(g.SphereQuery(core.Sphere{Radius: 5})))
	assert.Equal(t, []core.ElementID{5}, ids(g.SphereQuery(core.Sphere{Center: core.Position3D{X: 5e5}, Radius: 5})))

	g.Remove(wide)
	assert.Empty(t, g.wide)
	assert.Equal(t, []core.ElementID{6}, ids(g.SphereQuery(core.Sphere{Radius: 5})))
}
