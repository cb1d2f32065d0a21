package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/objectstream/streamer/internal/config"
	"github.com/objectstream/streamer/pkg/core"
)

// ErrNoSession is returned when recording before StartSession.
var ErrNoSession = errors.New("no session started")

// Backend stores session data in memory and exports it to JSON on EndSession
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	snapshots []core.LimitSnapshot
	checks    []core.ResidencyCheck
	warnings  []core.LimitWarning

	idCounter      uint
	lastExportPath string
	endTime        time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and resets all collections
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.session = s

	b.snapshots = nil
	b.checks = nil
	b.warnings = nil
	b.endTime = time.Time{}

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.endTime = time.Now().UTC()
	return b.exportJSON()
}

// RecordLimitSnapshot appends a ledger snapshot
func (b *Backend) RecordLimitSnapshot(s *core.LimitSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.snapshots = append(b.snapshots, *s)
	return nil
}

// RecordResidencyCheck appends a residency query outcome
func (b *Backend) RecordResidencyCheck(c *core.ResidencyCheck) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.checks = append(b.checks, *c)
	return nil
}

// RecordLimitWarning appends a pool exhaustion warning
func (b *Backend) RecordLimitWarning(w *core.LimitWarning) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.warnings = append(b.warnings, *w)
	return nil
}

// Snapshots returns a copy of the recorded ledger snapshots.
func (b *Backend) Snapshots() []core.LimitSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LimitSnapshot(nil), b.snapshots...)
}

// ResidencyChecks returns a copy of the recorded residency checks.
func (b *Backend) ResidencyChecks() []core.ResidencyCheck {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.ResidencyCheck(nil), b.checks...)
}

// Warnings returns a copy of the recorded limit warnings.
func (b *Backend) Warnings() []core.LimitWarning {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LimitWarning(nil), b.warnings...)
}

// GetExportedFilePath returns the path of the last export, or "" before the
// first EndSession.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
