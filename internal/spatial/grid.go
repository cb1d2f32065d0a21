// Package spatial provides a broad-phase proximity index over entity bounding boxes.
package spatial

import (
	"math"
	"sort"

	"github.com/objectstream/streamer/pkg/core"
)

// DefaultCellSize is the grid cell edge length in world units.
const DefaultCellSize = 100.0

// maxCoverCells bounds how many cells a box may be bucketed into. Wider boxes
// are kept aside and tested against every query.
const maxCoverCells = 4096

type cellKey struct {
	x, y int
}

type entry struct {
	entity core.Entity
	box    core.Box
	cells  []cellKey
	wide   bool
}

// Grid is a uniform 2D hash grid. Entities are bucketed by the XY footprint of their
// bounding box; Z only takes part in the final box test. Queries return every entity
// whose box overlaps the query sphere's box, so results over-include near corners.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]core.Entity
	entries  map[core.ElementID]*entry
	wide     map[core.ElementID]core.Entity
}

// NewGrid creates an empty grid. Non-positive cell sizes fall back to DefaultCellSize.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]core.Entity),
		entries:  make(map[core.ElementID]*entry),
		wide:     make(map[core.ElementID]core.Entity),
	}
}

// Insert adds e with the given bounding box, replacing any previous placement.
func (g *Grid) Insert(e core.Entity, box core.Box) {
	g.Remove(e)

	en := &entry{entity: e, box: box}
	if r, ok := g.span(box); ok {
		en.cells = r.keys()
	} else {
		en.wide = true
		g.wide[e.ID()] = e
	}
	for _, k := range en.cells {
		g.cells[k] = append(g.cells[k], e)
	}
	g.entries[e.ID()] = en
}

// Remove drops e from the grid. Unknown entities are ignored.
func (g *Grid) Remove(e core.Entity) {
	en, ok := g.entries[e.ID()]
	if !ok {
		return
	}
	for _, k := range en.cells {
		bucket := g.cells[k]
		for i, other := range bucket {
			if other.ID() == e.ID() {
				// swap-remove keeps buckets dense
				last := len(bucket) - 1
				bucket[i] = bucket[last]
				bucket[last] = nil
				bucket = bucket[:last]
				break
			}
		}
		if len(bucket) == 0 {
			delete(g.cells, k)
		} else {
			g.cells[k] = bucket
		}
	}
	delete(g.wide, e.ID())
	delete(g.entries, e.ID())
}

// Len returns the number of indexed entities.
func (g *Grid) Len() int {
	return len(g.entries)
}

// SphereQuery returns every entity whose bounding box overlaps the sphere's bounding box.
// A NaN radius matches nothing; an infinite one matches everything.
func (g *Grid) SphereQuery(s core.Sphere) []core.Entity {
	query := core.BoxAround(s.Center, s.Radius)

	r, ok := g.span(query)
	if !ok || r.count() > len(g.cells) {
		return g.scan(query)
	}

	seen := make(map[core.ElementID]struct{})
	var out []core.Entity
	for _, k := range r.keys() {
		for _, e := range g.cells[k] {
			if _, dup := seen[e.ID()]; dup {
				continue
			}
			seen[e.ID()] = struct{}{}
			if overlaps(g.entries[e.ID()].box, query) {
				out = append(out, e)
			}
		}
	}
	for _, e := range g.wide {
		if overlaps(g.entries[e.ID()].box, query) {
			out = append(out, e)
		}
	}
	return out
}

// scan tests every entry; used when the query covers more cells than are occupied.
func (g *Grid) scan(query core.Box) []core.Entity {
	var out []core.Entity
	for _, en := range g.entries {
		if overlaps(en.box, query) {
			out = append(out, en.entity)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

type cellRange struct {
	x0, y0, x1, y1 int
}

func (r cellRange) count() int {
	if r.x1 < r.x0 || r.y1 < r.y0 {
		return 0
	}
	return (r.x1 - r.x0 + 1) * (r.y1 - r.y0 + 1)
}

func (r cellRange) keys() []cellKey {
	keys := make([]cellKey, 0, r.count())
	for x := r.x0; x <= r.x1; x++ {
		for y := r.y0; y <= r.y1; y++ {
			keys = append(keys, cellKey{x, y})
		}
	}
	return keys
}

// span returns the cells box covers, or false when they are too many to list or
// the box is not finite.
func (g *Grid) span(box core.Box) (cellRange, bool) {
	x0, y0 := math.Floor(box.Min.X/g.cellSize), math.Floor(box.Min.Y/g.cellSize)
	x1, y1 := math.Floor(box.Max.X/g.cellSize), math.Floor(box.Max.Y/g.cellSize)
	for _, v := range [4]float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return cellRange{}, false
		}
	}
	if (x1-x0+1)*(y1-y0+1) > maxCoverCells {
		return cellRange{}, false
	}
	return cellRange{int(x0), int(y0), int(x1), int(y1)}, true
}

func overlaps(a, b core.Box) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}
