package geo

import (
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/objectstream/streamer/pkg/core"
)

// Path is a camera route across the world at a fixed height.
type Path struct {
	line geom.LineString
	z    float64
}

// ParsePath builds a Path from [x, y] or [x, y, z] pairs. The height is taken from
// the first point.
func ParsePath(coords [][]float64) (Path, error) {
	if len(coords) < 2 {
		return Path{}, fmt.Errorf("path must have at least 2 points, got %d", len(coords))
	}

	flat := make([]float64, 0, len(coords)*2)
	for i, c := range coords {
		if len(c) < 2 {
			return Path{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flat = append(flat, c[0], c[1])
	}

	var z float64
	if len(coords[0]) > 2 {
		z = coords[0][2]
	}
	return Path{line: geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), z: z}, nil
}

// Length is the planar length of the path.
func (p Path) Length() float64 {
	return p.line.Length()
}

// At returns the position at fraction of the path's length. fraction is clamped to
// [0, 1].
func (p Path) At(fraction float64) core.Position3D {
	seq := p.line.Coordinates()
	n := seq.Length()
	if n == 0 {
		return core.Position3D{Z: p.z}
	}

	remaining := math.Max(0, math.Min(1, fraction)) * p.Length()
	for i := 0; i+1 < n; i++ {
		a, b := seq.GetXY(i), seq.GetXY(i+1)
		seg := math.Hypot(b.X-a.X, b.Y-a.Y)
		if remaining <= seg && seg > 0 {
			t := remaining / seg
			return core.Position3D{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t, Z: p.z}
		}
		remaining -= seg
	}

	last := seq.GetXY(n - 1)
	return core.Position3D{X: last.X, Y: last.Y, Z: p.z}
}
