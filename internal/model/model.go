package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&Session{},
	&LimitSnapshot{},
	&ResidencyCheck{},
	&LimitWarning{},
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is one streaming run
type Session struct {
	gorm.Model
	Name      string         `json:"name" gorm:"size:200"`
	StartTime time.Time      `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime   *time.Time     `json:"endTime" gorm:"type:timestamptz"`
	Limits    datatypes.JSON `json:"limits"`

	LimitSnapshots  []LimitSnapshot
	ResidencyChecks []ResidencyCheck
	LimitWarnings   []LimitWarning
}

func (*Session) TableName() string {
	return "sessions"
}

////////////////////////
// LEDGER MODELS
////////////////////////

// LimitSnapshot is the admission ledger after a pulse
type LimitSnapshot struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_limitsnapshot_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_limitsnapshot_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick" gorm:"index:idx_limitsnapshot_tick"`

	Standard   uint32 `json:"standard"`
	LowLOD     uint32 `json:"lowLod"`
	Resident   uint32 `json:"resident"`
	Registered uint32 `json:"registered"`

	Pools PoolUsage `json:"pools" gorm:"embedded;embeddedPrefix:pool_"`

	ObjectLimit bool `json:"objectLimit" gorm:"default:false"`
	LowLODLimit bool `json:"lowLodLimit" gorm:"default:false"`
	HardLimit   bool `json:"hardLimit" gorm:"default:false"`
}

func (*LimitSnapshot) TableName() string {
	return "limit_snapshots"
}

// PoolUsage is the used entry count of each shared host pool
type PoolUsage struct {
	EntryInfoNodes     uint32 `json:"entryInfoNodes"`
	PointerSingleLinks uint32 `json:"pointerSingleLinks"`
	PointerDoubleLinks uint32 `json:"pointerDoubleLinks"`
}

// LimitWarning is the one-shot pool exhaustion report
type LimitWarning struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_limitwarning_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick"`
	Code      int       `json:"code"`
	Message   string    `json:"message" gorm:"size:500"`
}

func (*LimitWarning) TableName() string {
	return "limit_warnings"
}

////////////////////////
// QUERY MODELS
////////////////////////

// ResidencyCheck is one "are objects around this point loaded" query
type ResidencyCheck struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_residencycheck_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Tick      uint64    `json:"tick"`

	Point     geom.Point     `json:"point"` // XY plane
	Elevation float32        `json:"elevation"`
	Radius    float32        `json:"radius"`
	Dimension uint16         `json:"dimension"`
	Loaded    bool           `json:"loaded"`
	Trace     datatypes.JSON `json:"trace"`
}

func (*ResidencyCheck) TableName() string {
	return "residency_checks"
}
