// Package influx writes ledger snapshots and residency checks to InfluxDB, falling
// back to a gzipped line protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/objectstream/streamer/internal/config"
	"github.com/objectstream/streamer/pkg/core"
)

const (
	// MeasurementLimits holds one point per recorded ledger snapshot.
	MeasurementLimits = "object_limits"
	// MeasurementResidency holds one point per residency check.
	MeasurementResidency = "residency_checks"
)

// retentionSeconds is the retention of a bucket created by Connect.
const retentionSeconds = 60 * 60 * 24 * 90

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	session    string
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager. Points are tagged with the session name.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath, session string) *Manager {
	return &Manager{
		cfg:        cfg,
		Logger:     log,
		BackupPath: backupPath,
		session:    session,
	}
}

// ServerURL returns the base URL built from the protocol, host and port.
func (m *Manager) ServerURL() string {
	return fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port)
}

// Connect establishes a connection to InfluxDB. When the server does not answer a
// ping the manager writes to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.ServerURL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			if err := m.openBackup(); err != nil {
				return err
			}
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.Logger.Info().Str("url", m.ServerURL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupPath == "" {
		return errors.New("influxDB unreachable and no backup path configured")
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		if m.Writer == nil {
			return fmt.Errorf("influxDB writer for bucket '%s' not created", m.cfg.Bucket)
		}
		m.Writer.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteLimitSnapshot records a ledger snapshot.
func (m *Manager) WriteLimitSnapshot(s core.LimitSnapshot) error {
	return m.WritePoint(LimitSnapshotPoint(m.session, s))
}

// WriteResidencyCheck records a residency check.
func (m *Manager) WriteResidencyCheck(c core.ResidencyCheck) error {
	return m.WritePoint(ResidencyCheckPoint(m.session, c))
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// LimitSnapshotPoint builds the object_limits point for a snapshot.
func LimitSnapshotPoint(session string, s core.LimitSnapshot) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementLimits,
		map[string]string{"session": session},
		map[string]any{
			"tick":                 int64(s.Tick),
			"standard":             s.Standard,
			"low_lod":              s.LowLOD,
			"resident":             s.Resident,
			"registered":           s.Registered,
			"entry_info_nodes":     s.EntryInfoNodes,
			"pointer_single_links": s.PointerSingleLinks,
			"pointer_double_links": s.PointerDoubleLinks,
			"object_limit":         s.ObjectLimit,
			"low_lod_limit":        s.LowLODLimit,
			"hard_limit":           s.HardLimit,
		},
		s.Time,
	)
}

// ResidencyCheckPoint builds the residency_checks point for a check.
func ResidencyCheckPoint(session string, c core.ResidencyCheck) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementResidency,
		map[string]string{
			"session":   session,
			"dimension": fmt.Sprintf("%d", c.Dimension),
		},
		map[string]any{
			"tick":    int64(c.Tick),
			"x":       c.Point.X,
			"y":       c.Point.Y,
			"z":       c.Point.Z,
			"radius":  c.Radius,
			"loaded":  c.Loaded,
			"pending": len(c.Trace),
		},
		c.Time,
	)
}
