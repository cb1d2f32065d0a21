// Package sim is an in-process stand-in for the game host: model metadata, shared
// pools, a spatial index and streamable objects driven by a camera.
package sim

import (
	"github.com/objectstream/streamer/pkg/core"
)

// DefaultBaseIDForTXD is the first id past the model range on a stock host.
const DefaultBaseIDForTXD core.ModelID = 20000

// Model is the metadata the catalog holds for one model id.
type Model struct {
	Interface bool
	Loaded    bool
	Archive   bool
	Type      core.ModelType
}

func (m *Model) HasInterface() bool         { return m.Interface }
func (m *Model) IsLoaded() bool             { return m.Loaded }
func (m *Model) IsAllocatedInArchive() bool { return m.Archive }
func (m *Model) ModelType() core.ModelType  { return m.Type }

// Catalog implements core.ModelCatalog.
type Catalog struct {
	base   core.ModelID
	models map[core.ModelID]*Model
}

// NewCatalog creates an empty catalog. A zero base falls back to DefaultBaseIDForTXD.
func NewCatalog(base core.ModelID) *Catalog {
	if base == 0 {
		base = DefaultBaseIDForTXD
	}
	return &Catalog{base: base, models: make(map[core.ModelID]*Model)}
}

// Add stores metadata for id, replacing any previous entry.
func (c *Catalog) Add(id core.ModelID, m Model) {
	c.models[id] = &m
}

// SetLoaded flips the load state of a known model.
func (c *Catalog) SetLoaded(id core.ModelID, loaded bool) {
	if m, ok := c.models[id]; ok {
		m.Loaded = loaded
	}
}

func (c *Catalog) ModelInfo(id core.ModelID) (core.ModelInfo, bool) {
	m, ok := c.models[id]
	if !ok {
		return nil, false
	}
	return m, true
}

func (c *Catalog) BaseIDForTXD() core.ModelID {
	return c.base
}

func (c *Catalog) loaded(id core.ModelID) bool {
	m, ok := c.models[id]
	return ok && m.Loaded
}
