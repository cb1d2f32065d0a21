// Package otel wires the OpenTelemetry log pipeline and hands out meters for
// the ledger and dispatcher gauges.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoOutput is returned when telemetry is enabled without anywhere to send it.
var ErrNoOutput = errors.New("otel: enabled without a log writer or endpoint")

// Config selects where simulation telemetry goes.
type Config struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	LogWriter    io.Writer // session log file
	Endpoint     string    // OTLP/HTTP collector, optional
	Insecure     bool

	// MeterProvider overrides the global provider, mostly for tests.
	MeterProvider metric.MeterProvider
}

// Provider owns the log pipeline for one run.
type Provider struct {
	enabled     bool
	logProvider *sdklog.LoggerProvider
	meters      metric.MeterProvider
}

// New returns a disabled provider when cfg.Enabled is false.
func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{meters: noop.NewMeterProvider()}, nil
	}

	ctx := context.Background()
	exporters, err := logExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("otel: building resource: %w", err)
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)),
		))
	}

	meters := cfg.MeterProvider
	if meters == nil {
		meters = otel.GetMeterProvider()
	}
	return &Provider{
		enabled:     true,
		logProvider: sdklog.NewLoggerProvider(opts...),
		meters:      meters,
	}, nil
}

func logExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var out []sdklog.Exporter
	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("otel: file exporter: %w", err)
		}
		out = append(out, exp)
	}
	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel: otlp exporter for %s: %w", cfg.Endpoint, err)
		}
		out = append(out, exp)
	}
	if len(out) == 0 {
		return nil, ErrNoOutput
	}
	return out, nil
}

// LoggerProvider is nil while disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logProvider
}

// Meter returns a no-op meter while disabled.
func (p *Provider) Meter(name string) metric.Meter {
	return p.meters.Meter(name)
}

// MeterProvider is what RegisterMetrics callers should build instruments from.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meters
}

// Flush pushes buffered records out, typically at the end of a session.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.ForceFlush(ctx); err != nil {
		return fmt.Errorf("otel: flush: %w", err)
	}
	return nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logProvider == nil {
		return nil
	}
	if err := p.logProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel: shutdown: %w", err)
	}
	return nil
}

func (p *Provider) Enabled() bool {
	return p.enabled
}
