package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/objectstream/streamer/pkg/core"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Position3DFromString parses "x,y" or "x,y,z" into a core.Position3D. Whitespace
// around each component is ignored; NaN and infinite components are rejected.
func Position3DFromString(coords string) (core.Position3D, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Position3D{}, ErrInvalidCoordinates
	}

	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Position3D{}, ErrInvalidCoordinates
		}
		vals[i] = v
	}
	return core.Position3D{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}
