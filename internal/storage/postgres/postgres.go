// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/objectstream/streamer/internal/database"
	"github.com/objectstream/streamer/internal/model"
	"github.com/objectstream/streamer/internal/model/convert"
	"github.com/objectstream/streamer/internal/queue"
	"github.com/objectstream/streamer/pkg/core"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = time.Second

// maxBatch caps the rows written per queue per cycle.
const maxBatch = 5000

// ErrNoSession is returned when recording before StartSession.
var ErrNoSession = errors.New("no session started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Snapshots *queue.Queue[model.LimitSnapshot]
	Checks    *queue.Queue[model.ResidencyCheck]
	Warnings  *queue.Queue[model.LimitWarning]
}

func newQueues() *queues {
	return &queues{
		Snapshots: queue.New[model.LimitSnapshot](),
		Checks:    queue.New[model.ResidencyCheck](),
		Warnings:  queue.New[model.LimitWarning](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	closed   bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection, nil before Init when none was injected.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.Logger

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS extension: %w", err)
		}
		log.Info("PostGIS extension created")
	}

	log.Info("Migrating schema", "dialect", db.Name())
	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Info("Database setup complete")
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil || b.closed {
		return nil
	}
	b.closed = true
	close(b.stopChan)
	<-b.done
	return b.Flush()
}

// StartSession inserts the session row and stamps subsequent records with its ID.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return fmt.Errorf("backend not initialized")
	}

	gormSession := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&gormSession).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	s.ID = gormSession.ID
	b.sessionID.Store(uint64(gormSession.ID))
	b.deps.Logger.Info("Session started", "sessionId", gormSession.ID, "name", s.Name)
	return nil
}

// EndSession drains the queues and sets the session end time.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Load())
	if id == 0 {
		return ErrNoSession
	}
	if err := b.Flush(); err != nil {
		return err
	}

	now := time.Now().UTC()
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", now).Error
	if err != nil {
		return fmt.Errorf("failed to close session %d: %w", id, err)
	}
	b.deps.Logger.Info("Session ended", "sessionId", id)
	return nil
}

// RecordLimitSnapshot converts and queues a ledger snapshot.
func (b *Backend) RecordLimitSnapshot(s *core.LimitSnapshot) error {
	gormObj := convert.CoreToLimitSnapshot(*s)
	if gormObj.SessionID = uint(b.sessionID.Load()); gormObj.SessionID == 0 {
		return ErrNoSession
	}
	b.queues.Snapshots.Push(gormObj)
	return nil
}

// RecordResidencyCheck converts and queues a residency query outcome.
func (b *Backend) RecordResidencyCheck(c *core.ResidencyCheck) error {
	gormObj := convert.CoreToResidencyCheck(*c)
	if gormObj.SessionID = uint(b.sessionID.Load()); gormObj.SessionID == 0 {
		return ErrNoSession
	}
	b.queues.Checks.Push(gormObj)
	return nil
}

// RecordLimitWarning converts and queues a pool exhaustion warning.
func (b *Backend) RecordLimitWarning(w *core.LimitWarning) error {
	gormObj := convert.CoreToLimitWarning(*w)
	if gormObj.SessionID = uint(b.sessionID.Load()); gormObj.SessionID == 0 {
		return ErrNoSession
	}
	b.queues.Warnings.Push(gormObj)
	return nil
}

// Pending returns the number of queued rows not yet written.
func (b *Backend) Pending() int {
	return b.queues.Snapshots.Len() + b.queues.Checks.Len() + b.queues.Warnings.Len()
}

// Flush writes every queued row. Rows of a failed batch are put back at the
// head of their queue and the first error is returned.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	if b.deps.DB == nil {
		return nil
	}

	var errs []error
	for b.Pending() > 0 {
		before := b.Pending()
		errs = append(errs,
			writeQueue(b.deps.DB, b.queues.Snapshots, "limit snapshots"),
			writeQueue(b.deps.DB, b.queues.Checks, "residency checks"),
			writeQueue(b.deps.DB, b.queues.Warnings, "limit warnings"),
		)
		if err := errors.Join(errs...); err != nil {
			return err
		}
		if b.Pending() >= before {
			break
		}
	}
	return nil
}

// writeQueue writes one batch from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	items := q.Take(maxBatch)
	if len(items) == 0 {
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		q.Requeue(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	return nil
}

// writerLoop periodically drains the queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB writer failed", "error", err, "pending", b.Pending())
			}
		}
	}
}
