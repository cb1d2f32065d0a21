// Package scenario loads JSON scenario files describing a simulated host (models,
// pools, objects, a camera route, scripted events and residency probes) and runs
// them against a manager.
package scenario

import (
	"errors"
	"fmt"
	"math"

	"github.com/spf13/viper"

	"github.com/objectstream/streamer/internal/geo"
	"github.com/objectstream/streamer/internal/limits"
	"github.com/objectstream/streamer/internal/sim"
	"github.com/objectstream/streamer/internal/spatial"
	"github.com/objectstream/streamer/pkg/core"
)

// DefaultStreamDistance is the camera range when the scenario sets none.
const DefaultStreamDistance = 300

// Event actions.
const (
	ActionUnload      = "unload"
	ActionLoad        = "load"
	ActionRestream    = "restream"
	ActionRestreamAll = "restreamAll"
	ActionDestroy     = "destroy"
	ActionDrop        = "drop"
	ActionDeleteAll   = "deleteAll"
)

var actions = map[string]bool{
	ActionUnload:      true,
	ActionLoad:        true,
	ActionRestream:    true,
	ActionRestreamAll: true,
	ActionDestroy:     true,
	ActionDrop:        true,
	ActionDeleteAll:   true,
}

// ErrInvalid wraps every scenario validation failure.
var ErrInvalid = errors.New("invalid scenario")

// LimitsSpec overrides the configured ceilings. Zero fields keep the configured value.
type LimitsSpec struct {
	MaxObjects            int `mapstructure:"maxObjects"`
	MaxStandard           int `mapstructure:"maxStandard"`
	MaxEntryInfoNodes     int `mapstructure:"maxEntryInfoNodes"`
	MaxPointerSingleLinks int `mapstructure:"maxPointerSingleLinks"`
	MaxPointerDoubleLinks int `mapstructure:"maxPointerDoubleLinks"`
}

// PoolsSpec sets the shared pool occupancy model. Arrays are ordered entry info
// nodes, single links, double links.
type PoolsSpec struct {
	Base        []int `mapstructure:"base"`
	PerObject   []int `mapstructure:"perObject"`
	BaseObjects int   `mapstructure:"baseObjects"`
}

// ModelSpec is one catalog entry. Omitted flags default to true.
type ModelSpec struct {
	ID        uint32 `mapstructure:"id"`
	Type      string `mapstructure:"type"`
	Interface *bool  `mapstructure:"interface"`
	Loaded    *bool  `mapstructure:"loaded"`
	Archive   *bool  `mapstructure:"archive"`
}

// ObjectSpec is one placed object. Position is "x,y,z".
type ObjectSpec struct {
	ID        uint32  `mapstructure:"id"`
	Model     uint32  `mapstructure:"model"`
	Position  string  `mapstructure:"position"`
	Radius    float64 `mapstructure:"radius"`
	Dimension uint16  `mapstructure:"dimension"`
	LowLOD    bool    `mapstructure:"lowLod"`
}

// FillSpec places Count objects of one model on a grid starting at Origin, Columns
// per row, with consecutive ids from FirstID.
type FillSpec struct {
	Model     uint32  `mapstructure:"model"`
	FirstID   uint32  `mapstructure:"firstId"`
	Origin    string  `mapstructure:"origin"`
	Count     int     `mapstructure:"count"`
	Columns   int     `mapstructure:"columns"`
	Spacing   float64 `mapstructure:"spacing"`
	Radius    float64 `mapstructure:"radius"`
	Dimension uint16  `mapstructure:"dimension"`
	LowLOD    bool    `mapstructure:"lowLod"`
}

// EntitySpec is a non-object entity in the spatial index.
type EntitySpec struct {
	ID       uint32  `mapstructure:"id"`
	Type     string  `mapstructure:"type"`
	Position string  `mapstructure:"position"`
	Radius   float64 `mapstructure:"radius"`
}

// CameraSpec is the streaming focus. When the scenario has a path the position is
// ignored and the camera travels the path over the run.
type CameraSpec struct {
	Position       string  `mapstructure:"position"`
	Dimension      uint16  `mapstructure:"dimension"`
	StreamDistance float64 `mapstructure:"streamDistance"`
}

// EventSpec is a scripted host action applied before the streamer step of Tick.
type EventSpec struct {
	Tick   int    `mapstructure:"tick"`
	Action string `mapstructure:"action"`
	Model  uint32 `mapstructure:"model"`
	ID     uint32 `mapstructure:"id"`
}

// ProbeSpec is a residency query issued after the pulse of Tick.
type ProbeSpec struct {
	Tick      int     `mapstructure:"tick"`
	Point     string  `mapstructure:"point"`
	Radius    float64 `mapstructure:"radius"`
	Dimension uint16  `mapstructure:"dimension"`
	Trace     bool    `mapstructure:"trace"`
}

// Scenario is a parsed scenario file.
type Scenario struct {
	Name         string       `mapstructure:"name"`
	BaseIDForTXD uint32       `mapstructure:"baseIdForTxd"`
	CellSize     float64      `mapstructure:"cellSize"`
	Cooldown     int          `mapstructure:"cooldown"`
	Ticks        int          `mapstructure:"ticks"`
	Limits       *LimitsSpec  `mapstructure:"limits"`
	Pools        PoolsSpec    `mapstructure:"pools"`
	Models       []ModelSpec  `mapstructure:"models"`
	Objects      []ObjectSpec `mapstructure:"objects"`
	Fills        []FillSpec   `mapstructure:"fills"`
	Entities     []EntitySpec `mapstructure:"entities"`
	Camera       CameraSpec   `mapstructure:"camera"`
	Path         [][]float64  `mapstructure:"path"`
	Events       []EventSpec  `mapstructure:"events"`
	Probes       []ProbeSpec  `mapstructure:"probes"`

	cameraPos core.Position3D
	path      *geo.Path
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("name", "scenario")
	v.SetDefault("baseIdForTxd", uint32(sim.DefaultBaseIDForTXD))
	v.SetDefault("cellSize", spatial.DefaultCellSize)
	v.SetDefault("cooldown", sim.DefaultCooldown)
	v.SetDefault("camera.position", "0,0,0")
	v.SetDefault("camera.streamDistance", DefaultStreamDistance)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading scenario file: %w", err)
	}

	var s Scenario
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// CheckRadius rejects negative and non-finite distances.
func CheckRadius(r float64) error {
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return fmt.Errorf("radius %v must be finite and non-negative", r)
	}
	return nil
}

// Validate checks references and parses the position strings and path.
func (s *Scenario) Validate() error {
	if s.Ticks < 0 {
		return fmt.Errorf("%w: negative ticks", ErrInvalid)
	}
	if len(s.Pools.Base) > len(core.Pools) || len(s.Pools.PerObject) > len(core.Pools) {
		return fmt.Errorf("%w: pools take at most %d values", ErrInvalid, len(core.Pools))
	}

	ids := make(map[uint32]bool)
	claim := func(id uint32, what string) error {
		if id == 0 {
			return fmt.Errorf("%w: %s id must be non-zero", ErrInvalid, what)
		}
		if ids[id] {
			return fmt.Errorf("%w: duplicate id %d", ErrInvalid, id)
		}
		ids[id] = true
		return nil
	}

	for _, m := range s.Models {
		if core.ParseModelType(m.Type) == core.ModelTypeUnknown && m.Type != "" {
			return fmt.Errorf("%w: model %d has unknown type %q", ErrInvalid, m.ID, m.Type)
		}
	}
	for _, o := range s.Objects {
		if err := claim(o.ID, "object"); err != nil {
			return err
		}
		if _, err := geo.Position3DFromString(o.Position); err != nil {
			return fmt.Errorf("%w: object %d: %v", ErrInvalid, o.ID, err)
		}
		if err := CheckRadius(o.Radius); err != nil {
			return fmt.Errorf("%w: object %d: %v", ErrInvalid, o.ID, err)
		}
	}
	for i, f := range s.Fills {
		if f.Count <= 0 {
			return fmt.Errorf("%w: fill %d has no objects", ErrInvalid, i)
		}
		if _, err := geo.Position3DFromString(f.Origin); err != nil {
			return fmt.Errorf("%w: fill %d: %v", ErrInvalid, i, err)
		}
		if err := CheckRadius(f.Radius); err != nil {
			return fmt.Errorf("%w: fill %d: %v", ErrInvalid, i, err)
		}
		if uint64(f.FirstID)+uint64(f.Count) > math.MaxUint32 {
			return fmt.Errorf("%w: fill %d overflows the id range", ErrInvalid, i)
		}
		for n := 0; n < f.Count; n++ {
			if err := claim(f.FirstID+uint32(n), "fill"); err != nil {
				return err
			}
		}
	}
	for _, e := range s.Entities {
		if err := claim(e.ID, "entity"); err != nil {
			return err
		}
		if core.ParseEntityType(e.Type) == core.EntityUnknown {
			return fmt.Errorf("%w: entity %d has unknown type %q", ErrInvalid, e.ID, e.Type)
		}
		if _, err := geo.Position3DFromString(e.Position); err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrInvalid, e.ID, err)
		}
		if err := CheckRadius(e.Radius); err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrInvalid, e.ID, err)
		}
	}
	for _, e := range s.Events {
		if !actions[e.Action] {
			return fmt.Errorf("%w: unknown event action %q", ErrInvalid, e.Action)
		}
	}
	for _, p := range s.Probes {
		if _, err := geo.Position3DFromString(p.Point); err != nil {
			return fmt.Errorf("%w: probe at tick %d: %v", ErrInvalid, p.Tick, err)
		}
		if err := CheckRadius(p.Radius); err != nil {
			return fmt.Errorf("%w: probe at tick %d: %v", ErrInvalid, p.Tick, err)
		}
	}

	pos, err := geo.Position3DFromString(s.Camera.Position)
	if err != nil {
		return fmt.Errorf("%w: camera: %v", ErrInvalid, err)
	}
	if err := CheckRadius(s.Camera.StreamDistance); err != nil {
		return fmt.Errorf("%w: camera stream distance: %v", ErrInvalid, err)
	}
	s.cameraPos = pos

	if len(s.Path) > 0 {
		p, err := geo.ParsePath(s.Path)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		s.path = &p
	}
	return nil
}

// ApplyLimits returns base with the scenario's overrides applied.
func (s *Scenario) ApplyLimits(base limits.Limits) limits.Limits {
	if s.Limits == nil {
		return base
	}
	l := base
	if s.Limits.MaxEntryInfoNodes > 0 {
		l.MaxEntryInfoNodes = s.Limits.MaxEntryInfoNodes
	}
	if s.Limits.MaxPointerSingleLinks > 0 {
		l.MaxPointerSingleLinks = s.Limits.MaxPointerSingleLinks
	}
	if s.Limits.MaxPointerDoubleLinks > 0 {
		l.MaxPointerDoubleLinks = s.Limits.MaxPointerDoubleLinks
	}
	if s.Limits.MaxObjects > 0 || s.Limits.MaxStandard > 0 {
		if s.Limits.MaxObjects > 0 {
			l.MaxObjects = s.Limits.MaxObjects
		}
		l = limits.Split(l, s.Limits.MaxStandard)
	}
	return l
}

// CameraAt returns the camera for a 1-based tick. With a path the camera moves
// from its first point at tick 1 to its last point at the final tick.
func (s *Scenario) CameraAt(tick int) sim.Camera {
	cam := sim.Camera{
		Position:       s.cameraPos,
		Dimension:      core.Dimension(s.Camera.Dimension),
		StreamDistance: s.Camera.StreamDistance,
	}
	if s.path != nil {
		fraction := 0.0
		if s.Ticks > 1 {
			fraction = float64(tick-1) / float64(s.Ticks-1)
		}
		cam.Position = s.path.At(fraction)
	}
	return cam
}

// EventsAt returns the events scheduled for tick in file order.
func (s *Scenario) EventsAt(tick int) []EventSpec {
	var out []EventSpec
	for _, e := range s.Events {
		if e.Tick == tick {
			out = append(out, e)
		}
	}
	return out
}

// ProbesAt returns the probes scheduled for tick in file order.
func (s *Scenario) ProbesAt(tick int) []ProbeSpec {
	var out []ProbeSpec
	for _, p := range s.Probes {
		if p.Tick == tick {
			out = append(out, p)
		}
	}
	return out
}
