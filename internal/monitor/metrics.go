package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/objectstream/streamer/internal/manager"
)

const metricsNamespace = "objectstream"

// NewCollectors returns gauges that read the latest status from src at scrape time.
func NewCollectors(src StatusSource) []prometheus.Collector {
	gauge := func(name, help string, labels prometheus.Labels, read func(manager.Status) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return read(src.Status()) })
	}
	boolean := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	return []prometheus.Collector{
		gauge("tick", "Pulses run so far.", nil,
			func(s manager.Status) float64 { return float64(s.Tick) }),
		gauge("objects_registered", "Objects known to the registry.", nil,
			func(s manager.Status) float64 { return float64(s.Registered) }),
		gauge("objects_resident", "Resident objects per category.", prometheus.Labels{"category": "standard"},
			func(s manager.Status) float64 { return float64(s.Ledger.Standard) }),
		gauge("objects_resident", "Resident objects per category.", prometheus.Labels{"category": "low_lod"},
			func(s manager.Status) float64 { return float64(s.Ledger.LowLOD) }),
		gauge("pool_used", "Used entries of the shared host pools.", prometheus.Labels{"pool": "entry_info_nodes"},
			func(s manager.Status) float64 { return float64(s.Ledger.EntryInfoNodes) }),
		gauge("pool_used", "Used entries of the shared host pools.", prometheus.Labels{"pool": "pointer_single_links"},
			func(s manager.Status) float64 { return float64(s.Ledger.PointerSingleLinks) }),
		gauge("pool_used", "Used entries of the shared host pools.", prometheus.Labels{"pool": "pointer_double_links"},
			func(s manager.Status) float64 { return float64(s.Ledger.PointerDoubleLinks) }),
		gauge("limit_reached", "1 while an admission ceiling is reached.", prometheus.Labels{"limit": "object"},
			func(s manager.Status) float64 { return boolean(s.Ledger.ObjectLimit) }),
		gauge("limit_reached", "1 while an admission ceiling is reached.", prometheus.Labels{"limit": "low_lod"},
			func(s manager.Status) float64 { return boolean(s.Ledger.LowLODLimit) }),
		gauge("limit_reached", "1 while an admission ceiling is reached.", prometheus.Labels{"limit": "hard"},
			func(s manager.Status) float64 { return boolean(s.Ledger.HardLimit) }),
	}
}

// MetricsHandler serves the status gauges from a private registry.
func MetricsHandler(src StatusSource) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	for _, c := range NewCollectors(src) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
}

// MetricsServer exposes /metrics on an address until Stop is called.
type MetricsServer struct {
	srv  *http.Server
	done chan error
}

// StartMetricsServer starts serving MetricsHandler on addr.
func StartMetricsServer(addr string, src StatusSource) (*MetricsServer, error) {
	h, err := MetricsHandler(src)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)

	m := &MetricsServer{
		srv:  &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		done: make(chan error, 1),
	}
	go func() {
		err := m.srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		m.done <- err
	}()
	return m, nil
}

// Stop shuts the server down and returns the error ListenAndServe ended with.
func (m *MetricsServer) Stop(ctx context.Context) error {
	if err := m.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-m.done
}
