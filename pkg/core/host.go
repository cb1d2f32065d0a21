package core

// ModelInfo is the host metadata for a single model.
type ModelInfo interface {
	// HasInterface reports whether the host has a live metadata interface for the model.
	HasInterface() bool
	IsLoaded() bool
	IsAllocatedInArchive() bool
	ModelType() ModelType
}

// ModelCatalog is the host metadata service.
type ModelCatalog interface {
	ModelInfo(id ModelID) (ModelInfo, bool)
	// BaseIDForTXD is the first model id past the valid model range.
	BaseIDForTXD() ModelID
}

// Pool names one of the fixed-size shared host pools.
type Pool int

const (
	PoolEntryInfoNodes Pool = iota
	PoolPointerSingleLinks
	PoolPointerDoubleLinks
)

func (p Pool) String() string {
	switch p {
	case PoolEntryInfoNodes:
		return "entry_info_nodes"
	case PoolPointerSingleLinks:
		return "pointer_single_links"
	case PoolPointerDoubleLinks:
		return "pointer_double_links"
	default:
		return "unknown"
	}
}

// Pools lists every shared pool in reporting order.
var Pools = []Pool{PoolEntryInfoNodes, PoolPointerSingleLinks, PoolPointerDoubleLinks}

// PoolService exposes read-only occupancy of the host's fixed-size pools.
type PoolService interface {
	UsedCount(pool Pool) int
	// TotalObjectCount is the host's own live object count.
	TotalObjectCount() int
}

// SpatialIndex is the broad-phase proximity index. Results may over-include and
// come back in no particular order.
type SpatialIndex interface {
	SphereQuery(s Sphere) []Entity
}

// DiagnosticSink receives console output and one-shot report log entries.
type DiagnosticSink interface {
	Echo(msg string)
	ReportOnce(code int, msg string)
}

// Entity is anything the host places in the world.
type Entity interface {
	ID() ElementID
	Type() EntityType
}

// Object is a streamable object entity. Its physical representation is owned by the
// host; this module only tracks membership and category.
type Object interface {
	Entity

	Model() ModelID
	Dimension() Dimension
	IsLowLOD() bool

	// HasGameObject reports whether a backing host representation exists.
	HasGameObject() bool
	// ModelLoaded reports whether the host has the model data in memory.
	ModelLoaded() bool
	IsStreamedIn() bool

	DistanceToBoundingBoxSquared(p Position3D) float64

	// StreamedInPulse runs the object's own per-tick streaming update.
	StreamedInPulse()
	// StreamOutForABit drops the object out of the world until the streamer
	// decides to bring it back.
	StreamOutForABit()
	// Destroy tears the object down. Implementations unlink themselves through
	// the lifecycle hooks they were given.
	Destroy()
}

// LifecycleHooks is how objects report residency changes back to the manager.
type LifecycleHooks interface {
	OnCreation(obj Object)
	OnDestruction(obj Object)
	RemoveFromLists(obj Object)
}
