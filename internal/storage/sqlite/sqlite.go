// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are the in-memory DB and
// the dump loop.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/objectstream/streamer/internal/database"
	"github.com/objectstream/streamer/internal/storage/postgres"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*postgres.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
	dumped   atomic.Bool
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  postgres.New(postgres.Dependencies{DB: db, Logger: logger}),
		db:       db,
		cfg:      cfg,
		log:      logger.With("backend", "sqlite"),
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.done = make(chan struct{})
		go b.dumpLoop()
	}

	return nil
}

// EndSession closes the session and writes a final dump.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	if b.done != nil {
		<-b.done
	}
	return b.Backend.Close()
}

// Dump writes the in-memory database to DumpPath. It is a no-op without a path.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.dumped.Store(true)
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "took", time.Since(start))
	return nil
}

// GetExportedFilePath returns the dump path once a dump has been written, or "".
func (b *Backend) GetExportedFilePath() string {
	if !b.dumped.Load() {
		return ""
	}
	return b.cfg.DumpPath
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Backend.Flush(); err != nil {
				b.log.Error("Error flushing before dump", "error", err)
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
