package convert

import (
	"testing"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/objectstream/streamer/internal/model"
	"github.com/objectstream/streamer/pkg/core"
)

func TestPositionToPoint(t *testing.T) {
	pt := positionToPoint(core.Position3D{X: 100.5, Y: 200.5, Z: 50})

	coord, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 100.5, coord.XY.X)
	assert.Equal(t, 200.5, coord.XY.Y)
}

func TestPointToPosition_Empty(t *testing.T) {
	got := pointToPosition(geom.NewEmptyPoint(geom.DimXY), 12)
	assert.Equal(t, core.Position3D{Z: 12}, got)
}

func TestTraceToJSON(t *testing.T) {
	assert.Equal(t, datatypes.JSON("[]"), traceToJSON(nil))
	assert.JSONEq(t, `["a","b"]`, string(traceToJSON([]string{"a", "b"})))
}

func TestSessionRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	original := core.Session{
		ID:        3,
		Name:      "downtown",
		StartTime: now,
		Limits: core.LimitSettings{
			MaxObjects: 1000, MaxStandard: 500, MaxLowLOD: 500,
			MaxEntryInfoNodes: 72000, MaxPointerSingleLinks: 85000, MaxPointerDoubleLinks: 74000,
		},
	}

	gormSession := CoreToSession(original)
	assert.Equal(t, uint(3), gormSession.ID)
	assert.Contains(t, string(gormSession.Limits), `"maxLowLod":500`)

	assert.Equal(t, original, SessionToCore(gormSession))
}

func TestLimitSnapshotRoundTrip(t *testing.T) {
	original := core.LimitSnapshot{
		Time:               time.Now().Truncate(time.Millisecond),
		Tick:               42,
		Standard:           300,
		LowLOD:             120,
		Resident:           420,
		Registered:         900,
		EntryInfoNodes:     71000,
		PointerSingleLinks: 1200,
		PointerDoubleLinks: 800,
		ObjectLimit:        true,
		HardLimit:          true,
	}

	gormSnap := CoreToLimitSnapshot(original)
	assert.Equal(t, uint32(71000), gormSnap.Pools.EntryInfoNodes)
	assert.Equal(t, original, LimitSnapshotToCore(gormSnap))
}

func TestResidencyCheckRoundTrip(t *testing.T) {
	original := core.ResidencyCheck{
		Time:      time.Now().Truncate(time.Millisecond),
		Tick:      7,
		Point:     core.Position3D{X: 2500.5, Y: -1200.25, Z: 14},
		Radius:    50,
		Dimension: 2,
		Loaded:    false,
		Trace:     []string{"model:01337 dist: 4.0 gameObject:0 loaded:1 streamedIn:0"},
	}

	gormCheck := CoreToResidencyCheck(original)
	assert.Equal(t, float32(14), gormCheck.Elevation)
	assert.Equal(t, original, ResidencyCheckToCore(gormCheck))

	original.Trace = nil
	assert.Nil(t, ResidencyCheckToCore(CoreToResidencyCheck(original)).Trace)
}

func TestLimitWarningRoundTrip(t *testing.T) {
	original := core.LimitWarning{
		Time:    time.Now().Truncate(time.Millisecond),
		Tick:    9,
		Code:    7430,
		Message: "object manager reached limit",
	}
	assert.Equal(t, original, LimitWarningToCore(CoreToLimitWarning(original)))
}

func TestResidencyCheckToCore_BadTrace(t *testing.T) {
	got := ResidencyCheckToCore(model.ResidencyCheck{Trace: datatypes.JSON("not json")})
	assert.Nil(t, got.Trace)
}
