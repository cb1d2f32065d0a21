package storage

import "github.com/objectstream/streamer/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns the ID of the passed pointer)
	StartSession(s *core.Session) error
	EndSession() error

	// Recording
	RecordLimitSnapshot(s *core.LimitSnapshot) error
	RecordResidencyCheck(c *core.ResidencyCheck) error
	RecordLimitWarning(w *core.LimitWarning) error
}

// Exporter is an optional interface for backends that write a session file
// when the session ends.
type Exporter interface {
	GetExportedFilePath() string
}
