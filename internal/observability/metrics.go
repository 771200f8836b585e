package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/tapedeck/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Tape     *metrics.TapeMetrics
}

// NewMetrics creates a registry with every tapedeck collector registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	tapeMetrics, err := metrics.NewTapeMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create tape metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Tape:     tapeMetrics,
	}, nil
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	}))
}
