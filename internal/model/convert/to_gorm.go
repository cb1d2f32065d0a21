// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/objectstream/streamer/internal/model"
	"github.com/objectstream/streamer/pkg/core"
)

// positionToPoint converts a core.Position3D to a 2D geom.Point; Z is stored apart.
func positionToPoint(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}})
}

// traceToJSON converts trace lines to datatypes.JSON for DB storage.
func traceToJSON(lines []string) datatypes.JSON {
	if len(lines) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(lines)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	limits, _ := json.Marshal(s.Limits)

	out := model.Session{
		Name:      s.Name,
		StartTime: s.StartTime,
		Limits:    datatypes.JSON(limits),
	}
	out.ID = s.ID
	return out
}

// CoreToLimitSnapshot converts a core.LimitSnapshot to a GORM model.LimitSnapshot.
func CoreToLimitSnapshot(s core.LimitSnapshot) model.LimitSnapshot {
	return model.LimitSnapshot{
		Time:       s.Time,
		Tick:       s.Tick,
		Standard:   uint32(s.Standard),
		LowLOD:     uint32(s.LowLOD),
		Resident:   uint32(s.Resident),
		Registered: uint32(s.Registered),
		Pools: model.PoolUsage{
			EntryInfoNodes:     uint32(s.EntryInfoNodes),
			PointerSingleLinks: uint32(s.PointerSingleLinks),
			PointerDoubleLinks: uint32(s.PointerDoubleLinks),
		},
		ObjectLimit: s.ObjectLimit,
		LowLODLimit: s.LowLODLimit,
		HardLimit:   s.HardLimit,
	}
}

// CoreToResidencyCheck converts a core.ResidencyCheck to a GORM model.ResidencyCheck.
func CoreToResidencyCheck(c core.ResidencyCheck) model.ResidencyCheck {
	return model.ResidencyCheck{
		Time:      c.Time,
		Tick:      c.Tick,
		Point:     positionToPoint(c.Point),
		Elevation: float32(c.Point.Z),
		Radius:    float32(c.Radius),
		Dimension: uint16(c.Dimension),
		Loaded:    c.Loaded,
		Trace:     traceToJSON(c.Trace),
	}
}

// CoreToLimitWarning converts a core.LimitWarning to a GORM model.LimitWarning.
func CoreToLimitWarning(w core.LimitWarning) model.LimitWarning {
	return model.LimitWarning{
		Time:    w.Time,
		Tick:    w.Tick,
		Code:    w.Code,
		Message: w.Message,
	}
}
