package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/objectstream/streamer/internal/config"
	"github.com/objectstream/streamer/internal/storage"
	"github.com/objectstream/streamer/internal/storage/memory"
	pgstorage "github.com/objectstream/streamer/internal/storage/postgres"
	sqlitestorage "github.com/objectstream/streamer/internal/storage/sqlite"
)

// pendingReporter is implemented by backends that queue rows before writing them.
type pendingReporter interface {
	Pending() int
}

func createStorageBackend(storageCfg config.StorageConfig, dumpDir string, start time.Time, logger *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{Logger: logger}), nil

	case "sqlite":
		sqliteDBFilePath := filepath.Join(dumpDir, fmt.Sprintf("%s_%s.db", AppName, start.Format("20060102_150405")))
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     sqliteDBFilePath,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "dumpPath", sqliteDBFilePath)
		return backend, nil

	case "memory", "":
		logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// pendingFunc returns the backend's queue depth reporter, or nil.
func pendingFunc(b storage.Backend) func() int {
	if p, ok := b.(pendingReporter); ok {
		return p.Pending
	}
	return nil
}
