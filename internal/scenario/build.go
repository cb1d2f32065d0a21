package scenario

import (
	"github.com/objectstream/streamer/internal/geo"
	"github.com/objectstream/streamer/internal/sim"
	"github.com/objectstream/streamer/pkg/core"
)

// Setup is the simulated host built from a scenario.
type Setup struct {
	Catalog *sim.Catalog
	Pools   *sim.Pools
	World   *sim.World
}

func flag(b *bool) bool {
	return b == nil || *b
}

// Build creates the catalog, pools and world and places every object and entity.
// Objects are not registered with any manager yet.
func (s *Scenario) Build() *Setup {
	catalog := sim.NewCatalog(core.ModelID(s.BaseIDForTXD))
	for _, m := range s.Models {
		catalog.Add(core.ModelID(m.ID), sim.Model{
			Interface: flag(m.Interface),
			Loaded:    flag(m.Loaded),
			Archive:   flag(m.Archive),
			Type:      core.ParseModelType(m.Type),
		})
	}

	pools := &sim.Pools{BaseObjects: s.Pools.BaseObjects}
	copy(pools.Base[:], s.Pools.Base)
	copy(pools.PerObject[:], s.Pools.PerObject)

	world := sim.NewWorld(catalog, pools, s.CellSize)
	world.SetCooldown(s.Cooldown)

	for _, o := range s.Objects {
		// positions were checked by Validate
		pos, _ := geo.Position3DFromString(o.Position)
		world.Spawn(sim.ObjectSpec{
			ID:        core.ElementID(o.ID),
			Model:     core.ModelID(o.Model),
			Position:  pos,
			Radius:    o.Radius,
			Dimension: core.Dimension(o.Dimension),
			LowLOD:    o.LowLOD,
		})
	}

	for _, f := range s.Fills {
		origin, _ := geo.Position3DFromString(f.Origin)
		columns := max(f.Columns, 1)
		for n := 0; n < f.Count; n++ {
			world.Spawn(sim.ObjectSpec{
				ID:    core.ElementID(f.FirstID + uint32(n)),
				Model: core.ModelID(f.Model),
				Position: core.Position3D{
					X: origin.X + float64(n%columns)*f.Spacing,
					Y: origin.Y + float64(n/columns)*f.Spacing,
					Z: origin.Z,
				},
				Radius:    f.Radius,
				Dimension: core.Dimension(f.Dimension),
				LowLOD:    f.LowLOD,
			})
		}
	}

	for _, e := range s.Entities {
		pos, _ := geo.Position3DFromString(e.Position)
		world.AddEntity(core.ElementID(e.ID), core.ParseEntityType(e.Type), pos, e.Radius)
	}

	return &Setup{Catalog: catalog, Pools: pools, World: world}
}
