package limits

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/objectstream/streamer/pkg/core"
)

// InstrumentationName names the meter RegisterMetrics expects.
const InstrumentationName = "github.com/objectstream/streamer/internal/limits"

// RegisterMetrics exposes the published snapshot as observable gauges on m.
// The callback only reads the snapshot, so it is safe to run on the
// exporter's goroutine.
func (l *Ledger) RegisterMetrics(m metric.Meter) (metric.Registration, error) {

	resident, err := m.Int64ObservableGauge(
		"objectstream.objects.resident",
		metric.WithDescription("Resident objects per category"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resident gauge: %w", err)
	}

	poolUsed, err := m.Int64ObservableGauge(
		"objectstream.pool.used",
		metric.WithDescription("Used entries of the shared host pools"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pool gauge: %w", err)
	}

	reg, err := m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			s := l.Snapshot()
			o.ObserveInt64(resident, int64(s.Standard),
				metric.WithAttributes(attribute.String("category", "standard")))
			o.ObserveInt64(resident, int64(s.LowLOD),
				metric.WithAttributes(attribute.String("category", "low_lod")))

			used := [3]int{s.EntryInfoNodes, s.PointerSingleLinks, s.PointerDoubleLinks}
			for i, pool := range core.Pools {
				o.ObserveInt64(poolUsed, int64(used[i]),
					metric.WithAttributes(attribute.String("pool", pool.String())))
			}
			return nil
		},
		resident, poolUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("registering ledger callback: %w", err)
	}
	return reg, nil
}
