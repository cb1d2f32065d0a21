package core

// ElementID is the host-wide opaque identifier shared by every entity type.
type ElementID uint32

// ModelID identifies a model in the host metadata tables.
type ModelID uint32

// Dimension is a logical world partition. Entities in different dimensions never
// block each other's residency queries.
type Dimension uint16

// EntityType classifies host entities returned by the spatial index.
type EntityType int

const (
	EntityUnknown EntityType = iota
	EntityObject
	EntityVehicle
	EntityPed
	EntityPickup
	EntityMarker
)

func (t EntityType) String() string {
	switch t {
	case EntityObject:
		return "object"
	case EntityVehicle:
		return "vehicle"
	case EntityPed:
		return "ped"
	case EntityPickup:
		return "pickup"
	case EntityMarker:
		return "marker"
	default:
		return "unknown"
	}
}

// ParseEntityType maps the names used in scenario files to an EntityType.
func ParseEntityType(s string) EntityType {
	for t := EntityObject; t <= EntityMarker; t++ {
		if t.String() == s {
			return t
		}
	}
	return EntityUnknown
}

// ModelType is the geometry kind the host reports for a model.
type ModelType int

const (
	ModelTypeUnknown ModelType = iota
	ModelTypeClump
	ModelTypeAtomic
	ModelTypeWeapon
	ModelTypeTime
	ModelTypeVehicle
	ModelTypePed
	ModelTypeLOD
)

// ParseModelType maps the names used in scenario files to a ModelType.
func ParseModelType(s string) ModelType {
	switch s {
	case "clump":
		return ModelTypeClump
	case "atomic":
		return ModelTypeAtomic
	case "weapon":
		return ModelTypeWeapon
	case "time":
		return ModelTypeTime
	case "vehicle":
		return ModelTypeVehicle
	case "ped":
		return ModelTypePed
	case "lod":
		return ModelTypeLOD
	default:
		return ModelTypeUnknown
	}
}

func (t ModelType) String() string {
	switch t {
	case ModelTypeClump:
		return "clump"
	case ModelTypeAtomic:
		return "atomic"
	case ModelTypeWeapon:
		return "weapon"
	case ModelTypeTime:
		return "time"
	case ModelTypeVehicle:
		return "vehicle"
	case ModelTypePed:
		return "ped"
	case ModelTypeLOD:
		return "lod"
	default:
		return "unknown"
	}
}

// Position3D is a point in world space
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceSquared returns the squared euclidean distance between two points.
func (p Position3D) DistanceSquared(o Position3D) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Sphere is a query volume.
type Sphere struct {
	Center Position3D
	Radius float64
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Position3D
	Max Position3D
}

// BoxAround returns the cube of half-extent radius centred on p.
func BoxAround(p Position3D, radius float64) Box {
	return Box{
		Min: Position3D{X: p.X - radius, Y: p.Y - radius, Z: p.Z - radius},
		Max: Position3D{X: p.X + radius, Y: p.Y + radius, Z: p.Z + radius},
	}
}

// DistanceSquared returns the squared distance from p to the closest point of the box.
// Points inside the box are at distance zero.
func (b Box) DistanceSquared(p Position3D) float64 {
	dx := axisGap(p.X, b.Min.X, b.Max.X)
	dy := axisGap(p.Y, b.Min.Y, b.Max.Y)
	dz := axisGap(p.Z, b.Min.Z, b.Max.Z)
	return dx*dx + dy*dy + dz*dz
}

// IntersectsSphere reports whether the sphere touches the box.
func (b Box) IntersectsSphere(s Sphere) bool {
	return b.DistanceSquared(s.Center) <= s.Radius*s.Radius
}

func axisGap(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}
