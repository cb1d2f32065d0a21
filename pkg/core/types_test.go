package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModelType(t *testing.T) {
	for mt := ModelTypeClump; mt <= ModelTypeLOD; mt++ {
		assert.Equal(t, mt, ParseModelType(mt.String()))
	}
	assert.Equal(t, ModelTypeUnknown, ParseModelType("Atomic"))
	assert.Equal(t, ModelTypeUnknown, ParseModelType(""))
}

func TestParseEntityType(t *testing.T) {
	for et := EntityObject; et <= EntityMarker; et++ {
		assert.Equal(t, et, ParseEntityType(et.String()))
	}
	assert.Equal(t, EntityUnknown, ParseEntityType("unknown"))
	assert.Equal(t, EntityUnknown, ParseEntityType("train"))
}

func TestBox_DistanceSquared(t *testing.T) {
	b := BoxAround(Position3D{X: 10, Y: 10, Z: 10}, 2)

	tests := []struct {
		name string
		p    Position3D
		want float64
	}{
		{"centre", Position3D{X: 10, Y: 10, Z: 10}, 0},
		{"on face", Position3D{X: 12, Y: 10, Z: 10}, 0},
		{"one axis", Position3D{X: 15, Y: 10, Z: 10}, 9},
		{"corner", Position3D{X: 5, Y: 5, Z: 10}, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.DistanceSquared(tt.p))
		})
	}
}

func TestBox_IntersectsSphere(t *testing.T) {
	b := BoxAround(Position3D{}, 1)

	assert.True(t, b.IntersectsSphere(Sphere{Center: Position3D{X: 3}, Radius: 2}))
	assert.False(t, b.IntersectsSphere(Sphere{Center: Position3D{X: 3}, Radius: 1.9}))
	assert.True(t, b.IntersectsSphere(Sphere{Center: Position3D{}, Radius: 0}))
}

func TestPosition3D_DistanceSquared(t *testing.T) {
	p := Position3D{X: 1, Y: 2, Z: 3}
	assert.Equal(t, 0.0, p.DistanceSquared(p))
	assert.Equal(t, 14.0, p.DistanceSquared(Position3D{}))
}
