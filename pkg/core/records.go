package core

import "time"

// Session is one run of the streaming core recorded to storage.
type Session struct {
	ID        uint          `json:"id"`
	Name      string        `json:"name"`
	StartTime time.Time     `json:"startTime"`
	Limits    LimitSettings `json:"limits"`
}

// LimitSettings mirrors the configured ceilings for persistence.
type LimitSettings struct {
	MaxObjects            int `json:"maxObjects"`
	MaxStandard           int `json:"maxStandard"`
	MaxLowLOD             int `json:"maxLowLod"`
	MaxEntryInfoNodes     int `json:"maxEntryInfoNodes"`
	MaxPointerSingleLinks int `json:"maxPointerSingleLinks"`
	MaxPointerDoubleLinks int `json:"maxPointerDoubleLinks"`
}

// LimitSnapshot is the ledger state after a pulse.
type LimitSnapshot struct {
	Time               time.Time `json:"time"`
	Tick               uint64    `json:"tick"`
	Standard           int       `json:"standard"`
	LowLOD             int       `json:"lowLod"`
	Resident           int       `json:"resident"`
	Registered         int       `json:"registered"`
	EntryInfoNodes     int       `json:"entryInfoNodes"`
	PointerSingleLinks int       `json:"pointerSingleLinks"`
	PointerDoubleLinks int       `json:"pointerDoubleLinks"`
	ObjectLimit        bool      `json:"objectLimit"`
	LowLODLimit        bool      `json:"lowLodLimit"`
	HardLimit          bool      `json:"hardLimit"`
}

// ResidencyCheck is the outcome of one spatial residency query.
type ResidencyCheck struct {
	Time      time.Time  `json:"time"`
	Tick      uint64     `json:"tick"`
	Point     Position3D `json:"point"`
	Radius    float64    `json:"radius"`
	Dimension Dimension  `json:"dimension"`
	Loaded    bool       `json:"loaded"`
	Trace     []string   `json:"trace"`
}

// LimitWarning is the one-shot shared pool exhaustion report.
type LimitWarning struct {
	Time    time.Time `json:"time"`
	Tick    uint64    `json:"tick"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
}
