package recorder

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectstream/streamer/internal/config"
	"github.com/objectstream/streamer/internal/limits"
	"github.com/objectstream/streamer/internal/manager"
	"github.com/objectstream/streamer/internal/residency"
	"github.com/objectstream/streamer/internal/storage/memory"
	"github.com/objectstream/streamer/pkg/core"
)

type fakePoints struct {
	mu        sync.Mutex
	snapshots []core.LimitSnapshot
	checks    []core.ResidencyCheck
	err       error
}

func (p *fakePoints) WriteLimitSnapshot(s core.LimitSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
	return p.err
}

func (p *fakePoints) WriteResidencyCheck(c core.ResidencyCheck) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks = append(p.checks, c)
	return p.err
}

func newTestRecorder(t *testing.T, cfg Config) (*Recorder, *memory.Backend, *fakePoints) {
	t.Helper()
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, backend.StartSession(&core.Session{Name: "recorder"}))
	points := &fakePoints{}

	r, err := New(Dependencies{Backend: backend, Points: points}, cfg)
	require.NoError(t, err)
	return r, backend, points
}

func status(tick uint64) manager.Status {
	return manager.Status{
		Time:       time.Date(2024, 5, 1, 0, 0, int(tick), 0, time.UTC),
		Tick:       tick,
		Registered: 10,
		Resident:   4,
		Ledger: limits.Snapshot{
			Standard:           3,
			LowLOD:             1,
			EntryInfoNodes:     50,
			PointerSingleLinks: 2,
			PointerDoubleLinks: 2,
		},
	}
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Dependencies{}, Config{})
	assert.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	r, _, _ := newTestRecorder(t, Config{})
	defer r.Close()
	assert.Equal(t, 256, r.cfg.BufferSize)
	assert.Equal(t, 1, r.cfg.SnapshotEvery)
}

func TestOnPulse_SamplesEveryN(t *testing.T) {
	r, backend, points := newTestRecorder(t, Config{BufferSize: 16, SnapshotEvery: 5})

	for tick := uint64(1); tick <= 12; tick++ {
		r.OnPulse(status(tick))
	}
	// a repeated tick is not recorded twice
	r.OnPulse(status(10))
	require.NoError(t, r.Close())

	snaps := backend.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, uint64(5), snaps[0].Tick)
	assert.Equal(t, uint64(10), snaps[1].Tick)
	assert.Len(t, points.snapshots, 2)
}

func TestOnPulse_WarningOnce(t *testing.T) {
	r, backend, _ := newTestRecorder(t, Config{BufferSize: 16, SnapshotEvery: 100})

	warned := status(3)
	warned.Warned = true
	warned.Warning = "object manager reached limit - ENTRY_INFO_NODES:100/100 POINTER_SINGLE_LINKS:2/100 POINTER_DOUBLE_LINKS:2/100"

	r.OnPulse(status(2))
	r.OnPulse(warned)
	warned.Tick = 4
	r.OnPulse(warned)
	require.NoError(t, r.Close())

	warnings := backend.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, limits.LimitWarningCode, warnings[0].Code)
	assert.Equal(t, uint64(3), warnings[0].Tick)
	assert.Contains(t, warnings[0].Message, "ENTRY_INFO_NODES:100/100")
}

func TestRecordResidency(t *testing.T) {
	r, backend, points := newTestRecorder(t, Config{BufferSize: 4})

	check := NewResidencyCheck(7, core.Position3D{X: 1, Y: 2, Z: 3}, 50, 0, true, nil)
	r.RecordResidency(check)
	require.NoError(t, r.Close())

	checks := backend.ResidencyChecks()
	require.Len(t, checks, 1)
	assert.Equal(t, uint64(7), checks[0].Tick)
	assert.True(t, checks[0].Loaded)
	assert.Empty(t, checks[0].Trace)
	assert.Len(t, points.checks, 1)
}

func TestRecord_PointErrorKeepsStorage(t *testing.T) {
	r, backend, points := newTestRecorder(t, Config{BufferSize: 4})
	points.err = errors.New("influx down")

	r.OnPulse(status(1))
	require.NoError(t, r.Close())

	assert.Len(t, backend.Snapshots(), 1)
}

func TestRecord_AfterCloseIsDropped(t *testing.T) {
	r, backend, _ := newTestRecorder(t, Config{BufferSize: 4})
	require.NoError(t, r.Close())

	r.OnPulse(status(1))
	assert.Empty(t, backend.Snapshots())
}

func TestSnapshotFromStatus(t *testing.T) {
	s := status(9)
	s.Ledger.HardLimit = true
	s.Ledger.ObjectLimit = true

	snap := SnapshotFromStatus(s)

	assert.Equal(t, core.LimitSnapshot{
		Time:               s.Time,
		Tick:               9,
		Standard:           3,
		LowLOD:             1,
		Resident:           4,
		Registered:         10,
		EntryInfoNodes:     50,
		PointerSingleLinks: 2,
		PointerDoubleLinks: 2,
		ObjectLimit:        true,
		HardLimit:          true,
	}, snap)
}

func TestNewResidencyCheck_WithTrace(t *testing.T) {
	trace := &residency.Trace{Lines: []residency.TraceLine{
		{Model: 2000, DistSquared: 361, StreamedIn: true},
	}}

	check := NewResidencyCheck(1, core.Position3D{}, 20, 3, false, trace)

	assert.Equal(t, core.Dimension(3), check.Dimension)
	assert.Equal(t, []string{"model:02000 dist:19.0 gameObject:0 loaded:0 streamedIn:1"}, check.Trace)
	assert.False(t, check.Time.IsZero())
}
