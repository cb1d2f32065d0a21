package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/objectstream/streamer/internal/model"
	"github.com/objectstream/streamer/pkg/core"
)

// pointToPosition converts a 2D geom.Point and its stored elevation to a core.Position3D
func pointToPosition(p geom.Point, elevation float32) core.Position3D {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position3D{Z: float64(elevation)}
	}
	return core.Position3D{X: coord.XY.X, Y: coord.XY.Y, Z: float64(elevation)}
}

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	var limits core.LimitSettings
	if len(s.Limits) > 0 {
		_ = json.Unmarshal(s.Limits, &limits)
	}
	return core.Session{
		ID:        s.ID,
		Name:      s.Name,
		StartTime: s.StartTime,
		Limits:    limits,
	}
}

// LimitSnapshotToCore converts a GORM LimitSnapshot to a core.LimitSnapshot.
func LimitSnapshotToCore(s model.LimitSnapshot) core.LimitSnapshot {
	return core.LimitSnapshot{
		Time:               s.Time,
		Tick:               s.Tick,
		Standard:           int(s.Standard),
		LowLOD:             int(s.LowLOD),
		Resident:           int(s.Resident),
		Registered:         int(s.Registered),
		EntryInfoNodes:     int(s.Pools.EntryInfoNodes),
		PointerSingleLinks: int(s.Pools.PointerSingleLinks),
		PointerDoubleLinks: int(s.Pools.PointerDoubleLinks),
		ObjectLimit:        s.ObjectLimit,
		LowLODLimit:        s.LowLODLimit,
		HardLimit:          s.HardLimit,
	}
}

// ResidencyCheckToCore converts a GORM ResidencyCheck to a core.ResidencyCheck.
func ResidencyCheckToCore(c model.ResidencyCheck) core.ResidencyCheck {
	var trace []string
	if len(c.Trace) > 0 {
		_ = json.Unmarshal(c.Trace, &trace)
	}
	if len(trace) == 0 {
		trace = nil
	}
	return core.ResidencyCheck{
		Time:      c.Time,
		Tick:      c.Tick,
		Point:     pointToPosition(c.Point, c.Elevation),
		Radius:    float64(c.Radius),
		Dimension: core.Dimension(c.Dimension),
		Loaded:    c.Loaded,
		Trace:     trace,
	}
}

// LimitWarningToCore converts a GORM LimitWarning to a core.LimitWarning.
func LimitWarningToCore(w model.LimitWarning) core.LimitWarning {
	return core.LimitWarning{
		Time:    w.Time,
		Tick:    w.Tick,
		Code:    w.Code,
		Message: w.Message,
	}
}
