package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/objectstream/streamer/internal/config"
	"github.com/objectstream/streamer/internal/logging"
	"github.com/objectstream/streamer/internal/manager"
	intOtel "github.com/objectstream/streamer/internal/otel"
)

// BuildDate can be set at build time via ldflags
var (
	Version   string = "0.0.1"
	BuildDate string = "unknown"

	AppName string = "objectstream"
)

// ConfigDirEnv names the directory holding objectstream.cfg.json.
const ConfigDirEnv = "OBJECTSTREAM_CONFIG_DIR"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return errUsage
	}

	switch strings.ToLower(args[0]) {
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, Version, BuildDate)
		return nil

	case "help", "-h", "--help":
		printUsage(stdout)
		return nil

	case "breakable":
		return listBreakable(stdout)

	case "validate":
		if len(args) != 3 {
			fmt.Fprintln(stdout, "validate takes a scenario file and a model id.")
			return errUsage
		}
		return validateModel(args[1], args[2], stdout)

	case "simulate":
		if len(args) != 2 {
			fmt.Fprintln(stdout, "No scenario file provided.")
			return errUsage
		}
		a, err := newApp(configDir())
		if err != nil {
			return err
		}
		defer a.close()
		return a.simulate(ctx, args[1], nil, stdout)

	case "query":
		if len(args) < 4 || len(args) > 5 {
			fmt.Fprintln(stdout, "query takes a scenario file, a point, a radius and an optional dimension.")
			return errUsage
		}
		probe, err := parseProbe(args[2:])
		if err != nil {
			return err
		}
		a, err := newApp(configDir())
		if err != nil {
			return err
		}
		defer a.close()
		return a.simulate(ctx, args[1], &probe, stdout)

	default:
		printUsage(stdout)
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s %s

Usage:
  %[1]s simulate <scenario.json>
  %[1]s query <scenario.json> <x,y,z> <radius> [dimension]
  %[1]s validate <scenario.json> <model id>
  %[1]s breakable
  %[1]s version

The config file %s is read from $%s, or the working directory.
`, AppName, Version, config.FileName, ConfigDirEnv)
}

func configDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return "."
}

// app holds the process-wide services shared by the commands that run a scenario.
type app struct {
	start time.Time

	slogManager *logging.SlogManager
	logger      *slog.Logger
	otel        *intOtel.Provider

	files *logging.SessionFiles
	zlog  zerolog.Logger

	scenario atomic.Value
	status   atomic.Pointer[manager.Manager]
}

func newApp(dir string) (*app, error) {
	a := &app{start: time.Now()}

	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(nil, viper.GetString("logLevel"), nil)
	a.logger = a.slogManager.Logger()

	if err := config.Load(dir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
		config.SetDefaults()
	} else {
		a.logger.Info("Loaded config", "dir", dir)
	}

	files, err := logging.OpenSessionFiles(viper.GetString("logsDir"), AppName, a.start)
	if err != nil {
		return nil, err
	}
	a.files = files
	logFile := files.Log
	a.zlog = zerolog.New(logFile).With().Timestamp().Str("component", "recorder").Logger()

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
		a.otel, _ = intOtel.New(intOtel.Config{})
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otel.Enabled() {
		otelLogProvider = a.otel.LoggerProvider()
	}

	a.slogManager.SetContext(func() []slog.Attr {
		var attrs []slog.Attr
		if name, ok := a.scenario.Load().(string); ok && name != "" {
			attrs = append(attrs, slog.String("scenario", name))
		}
		if mgr := a.status.Load(); mgr != nil {
			st := mgr.Status()
			attrs = append(attrs, slog.Uint64("tick", st.Tick), slog.Int("resident", st.Resident))
		}
		return attrs
	})
	a.slogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider)
	a.logger = a.slogManager.Logger()
	a.logger.Info("Logging to file", "path", logFile.Name(), "version", Version)

	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.slogManager.Flush(ctx); err != nil {
		a.logger.Warn("Failed to flush logs", "error", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if a.files != nil {
		a.files.Close()
	}
}
