// Package residency answers whether every object around a point is fully streamed in.
package residency

import (
	"github.com/objectstream/streamer/pkg/core"
)

// Query runs residency checks against a spatial index.
type Query struct {
	index core.SpatialIndex
}

// NewQuery creates a Query over index.
func NewQuery(index core.SpatialIndex) *Query {
	return &Query{index: index}
}

// AreObjectsAroundPointLoaded reports whether every object in dim whose bounding box
// lies strictly within radius of point has a game object, a loaded model and is
// streamed in. A non-nil trace receives one line per unloaded candidate in dim and
// forces a full pass.
func (q *Query) AreObjectsAroundPointLoaded(point core.Position3D, radius float64, dim core.Dimension, trace *Trace) bool {
	loaded := true
	radiusSq := radius * radius

	for _, e := range q.index.SphereQuery(core.Sphere{Center: point, Radius: radius}) {
		if e.Type() != core.EntityObject {
			continue
		}
		obj, ok := e.(core.Object)
		if !ok {
			continue
		}

		hasGameObject := obj.HasGameObject()
		modelLoaded := obj.ModelLoaded()
		streamedIn := obj.IsStreamedIn()
		if hasGameObject && modelLoaded && streamedIn {
			continue
		}
		if obj.Dimension() != dim {
			continue
		}

		distSq := obj.DistanceToBoundingBoxSquared(point)
		if distSq < radiusSq {
			loaded = false
		}

		if trace == nil {
			if !loaded {
				return false
			}
			continue
		}
		trace.add(TraceLine{
			Model:         obj.Model(),
			DistSquared:   distSq,
			HasGameObject: hasGameObject,
			ModelLoaded:   modelLoaded,
			StreamedIn:    streamedIn,
		})
	}
	return loaded
}
