package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/objectstream/streamer/internal/archive"
	"github.com/objectstream/streamer/internal/config"
	"github.com/objectstream/streamer/internal/diag"
	"github.com/objectstream/streamer/internal/geo"
	"github.com/objectstream/streamer/internal/influx"
	"github.com/objectstream/streamer/internal/limits"
	"github.com/objectstream/streamer/internal/logging"
	"github.com/objectstream/streamer/internal/manager"
	"github.com/objectstream/streamer/internal/modelinfo"
	"github.com/objectstream/streamer/internal/monitor"
	"github.com/objectstream/streamer/internal/recorder"
	"github.com/objectstream/streamer/internal/scenario"
	"github.com/objectstream/streamer/internal/storage"
	"github.com/objectstream/streamer/pkg/core"
)

func listBreakable(stdout io.Writer) error {
	ids := modelinfo.BreakableModels()
	for _, id := range ids {
		fmt.Fprintln(stdout, id)
	}
	fmt.Fprintf(stdout, "%d breakable models\n", len(ids))
	return nil
}

// validateModel classifies one model against a scenario's catalog. It needs no
// config, storage or log files.
func validateModel(path, model string, stdout io.Writer) error {
	config.SetDefaults()
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(model, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid model id %q: %w", model, err)
	}

	setup := s.Build()
	mgr, err := manager.New(manager.Dependencies{
		Catalog: setup.Catalog,
		Pools:   setup.Pools,
		Index:   setup.World.Index,
		Limits:  s.ApplyLimits(config.GetLimits()),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "model %d: valid=%t breakable=%t\n",
		id, mgr.IsValidModel(core.ModelID(id)), mgr.IsBreakableModel(core.ModelID(id)))
	return nil
}

// parseProbe reads "<x,y,z> <radius> [dimension]".
func parseProbe(args []string) (scenario.ProbeSpec, error) {
	if _, err := geo.Position3DFromString(args[0]); err != nil {
		return scenario.ProbeSpec{}, fmt.Errorf("invalid point %q: %w", args[0], err)
	}
	radius, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return scenario.ProbeSpec{}, fmt.Errorf("invalid radius %q: %w", args[1], err)
	}
	if err := scenario.CheckRadius(radius); err != nil {
		return scenario.ProbeSpec{}, fmt.Errorf("invalid radius %q: %w", args[1], err)
	}
	var dim uint64
	if len(args) > 2 {
		dim, err = strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return scenario.ProbeSpec{}, fmt.Errorf("invalid dimension %q: %w", args[2], err)
		}
	}
	return scenario.ProbeSpec{
		Point:     args[0],
		Radius:    radius,
		Dimension: uint16(dim),
		Trace:     true,
	}, nil
}

// simulate runs a scenario end to end with the configured storage, time series
// and status outputs. A non-nil probe is issued after the last tick.
func (a *app) simulate(ctx context.Context, path string, probe *scenario.ProbeSpec, stdout io.Writer) error {
	s, err := scenario.Load(path)
	if err != nil {
		return err
	}
	simCfg := config.GetSimConfig()
	if s.Ticks == 0 {
		s.Ticks = simCfg.Ticks
	}
	a.scenario.Store(s.Name)
	logger := a.logger

	setup := s.Build()
	mgr, err := manager.New(manager.Dependencies{
		Catalog: setup.Catalog,
		Pools:   setup.Pools,
		Index:   setup.World.Index,
		Sink:    diag.NewSink(logger, a.files.Report),
		Logger:  logger,
		Limits:  s.ApplyLimits(config.GetLimits()),
	})
	if err != nil {
		return err
	}
	a.status.Store(mgr)
	defer a.status.Store(nil)

	if a.otel.Enabled() {
		reg, err := mgr.Ledger().RegisterMetrics(a.otel.Meter(limits.InstrumentationName))
		if err != nil {
			logger.Warn("Failed to register ledger metrics", "error", err)
		} else {
			defer reg.Unregister()
		}
	}

	backend, err := createStorageBackend(config.GetStorageConfig(), viper.GetString("logsDir"), a.start, logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logger.Error("Failed to close storage backend", "error", cerr)
		}
	}()

	session := &core.Session{
		Name:      s.Name,
		StartTime: a.start,
		Limits:    limitSettings(mgr.Ledger().Limits()),
	}
	if err := backend.StartSession(session); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	logger.Info("Session started", "id", session.ID, "ticks", s.Ticks)

	var points recorder.PointWriter
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backupPath := filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx_%s.lp.gz", AppName, a.start.Format("20060102_150405")))
		im := influx.NewManager(influxCfg, a.zlog, backupPath, s.Name)
		if err := im.Connect(ctx); err != nil {
			logger.Warn("InfluxDB unavailable", "error", err)
		} else {
			points = im
			defer im.Close()
		}
	}

	rec, err := recorder.New(recorder.Dependencies{
		Backend:     backend,
		Points:      points,
		EventLogger: logging.NewRecorderLogger(a.zlog),
		Logger:      logger,
	}, recorder.Config(config.GetRecorderConfig()))
	if err != nil {
		return err
	}

	monCfg := config.GetMonitorConfig()
	if monCfg.Enabled {
		mon := monitor.NewService(monitor.Dependencies{
			Source:     mgr,
			Logger:     logger,
			StatusFile: monCfg.StatusFile,
			Interval:   monCfg.Interval,
			Pending:    pendingFunc(backend),
		})
		if err := mon.Start(); err != nil {
			logger.Warn("Failed to start status monitor", "error", err)
		} else {
			defer mon.Stop()
		}
	}
	if monCfg.MetricsAddr != "" {
		ms, err := monitor.StartMetricsServer(monCfg.MetricsAddr, mgr)
		if err != nil {
			logger.Warn("Failed to start metrics server", "error", err)
		} else {
			logger.Info("Serving metrics", "addr", monCfg.MetricsAddr)
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := ms.Stop(stopCtx); err != nil {
					logger.Warn("Metrics server stopped with error", "error", err)
				}
			}()
		}
	}

	runner := scenario.NewRunner(s, setup, mgr, rec, logger)
	res, runErr := runner.Run(ctx, simCfg.TickInterval)
	if probe != nil && runErr == nil {
		probe.Tick = res.Ticks
		pr, err := runner.Probe(*probe)
		if err != nil {
			runErr = err
		} else {
			res.Probes = append(res.Probes, pr)
		}
	}

	if err := rec.Close(); err != nil {
		logger.Error("Failed to close recorder", "error", err)
	}
	if err := backend.EndSession(); err != nil {
		logger.Error("Failed to end session", "error", err)
	}

	printResult(stdout, s, res)
	if probe != nil && len(res.Probes) > 0 {
		printProbe(stdout, res.Probes[len(res.Probes)-1])
	}
	if exp, ok := backend.(storage.Exporter); ok && exp.GetExportedFilePath() != "" {
		exported := exp.GetExportedFilePath()
		fmt.Fprintf(stdout, "session written to %s\n", exported)
		if key, err := archiveSession(ctx, exported, s.Name, logger); err != nil {
			logger.Error("Failed to archive session", "error", err)
		} else if key != "" {
			fmt.Fprintf(stdout, "session archived as %s\n", key)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		fmt.Fprintln(stdout, "interrupted")
		return nil
	}
	return runErr
}

func limitSettings(l limits.Limits) core.LimitSettings {
	return core.LimitSettings{
		MaxObjects:            l.MaxObjects,
		MaxStandard:           l.MaxStandard,
		MaxLowLOD:             l.MaxLowLOD,
		MaxEntryInfoNodes:     l.MaxEntryInfoNodes,
		MaxPointerSingleLinks: l.MaxPointerSingleLinks,
		MaxPointerDoubleLinks: l.MaxPointerDoubleLinks,
	}
}

func printResult(w io.Writer, s *scenario.Scenario, res scenario.Result) {
	f := res.Final
	fmt.Fprintf(w, "scenario %s: %d ticks\n", s.Name, res.Ticks)
	fmt.Fprintf(w, "  streamed in %d, streamed out %d, refused %d, pending %d\n",
		res.StreamedIn, res.StreamedOut, res.Refused, res.Pending)
	fmt.Fprintf(w, "  registered %d, resident %d (standard %d, low LOD %d)\n",
		f.Registered, f.Resident, f.Ledger.Standard, f.Ledger.LowLOD)
	fmt.Fprintf(w, "  pools: entry info %d, single links %d, double links %d\n",
		f.Ledger.EntryInfoNodes, f.Ledger.PointerSingleLinks, f.Ledger.PointerDoubleLinks)
	fmt.Fprintf(w, "  limits: object=%t lowLod=%t hard=%t\n",
		f.Ledger.ObjectLimit, f.Ledger.LowLODLimit, f.Ledger.HardLimit)
	if f.Warned {
		fmt.Fprintf(w, "  warning: %s\n", f.Warning)
	}
	for _, p := range res.Probes {
		fmt.Fprintf(w, "  probe tick %d at %s r=%g dim=%d: loaded=%t\n",
			p.Tick, p.Probe.Point, p.Probe.Radius, p.Probe.Dimension, p.Loaded)
	}
}

func printProbe(w io.Writer, p scenario.ProbeResult) {
	fmt.Fprintf(w, "query %s r=%g dim=%d: loaded=%t\n", p.Probe.Point, p.Probe.Radius, p.Probe.Dimension, p.Loaded)
	if len(p.Trace) > 0 {
		fmt.Fprintln(w, strings.Join(p.Trace, "\n"))
	}
}

// archiveSession uploads an exported session file when archiving is enabled. It
// returns "" when archiving is off.
func archiveSession(ctx context.Context, filePath, session string, logger *slog.Logger) (string, error) {
	cfg := config.GetArchiveConfig()
	if !cfg.Enabled {
		return "", nil
	}
	store, err := archive.New(ctx, archive.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		Prefix:          cfg.Prefix,
		PathStyle:       cfg.PathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	}, logger)
	if err != nil {
		return "", err
	}
	return store.Upload(ctx, filePath, session)
}
