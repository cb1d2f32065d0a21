package sim

import (
	"github.com/objectstream/streamer/pkg/core"
)

// PoolCosts is a per-pool amount, indexed by core.Pool.
type PoolCosts [3]int

// Pools implements core.PoolService. Occupancy is a fixed base load plus a per-object
// cost for every object that currently has a game object.
type Pools struct {
	Base      PoolCosts
	PerObject PoolCosts
	// BaseObjects is the host's object count not owned by the streamer.
	BaseObjects int

	live int
}

func (p *Pools) UsedCount(pool core.Pool) int {
	if pool < 0 || int(pool) >= len(p.Base) {
		return 0
	}
	return p.Base[pool] + p.PerObject[pool]*p.live
}

func (p *Pools) TotalObjectCount() int {
	return p.BaseObjects + p.live
}

// Live returns the number of objects with a game object.
func (p *Pools) Live() int {
	return p.live
}

func (p *Pools) acquire() { p.live++ }

func (p *Pools) release() {
	if p.live > 0 {
		p.live--
	}
}
