// Package metrics exposes Prometheus instrumentation for lookups.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	lookups   *prometheus.CounterVec
	batchSize prometheus.Histogram
}

// New creates collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geoip",
			Name:      "lookups_total",
			Help:      "IP lookups by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geoip",
			Name:      "batch_size",
			Help:      "Number of IPs per batch request.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}

	m.registry.MustRegister(
		m.lookups,
		m.batchSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveLookup counts one resolution outcome for endpoint.
func (m *Metrics) ObserveLookup(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(endpoint, outcome).Inc()
}

// ObserveBatchSize records the number of items in a batch.
func (m *Metrics) ObserveBatchSize(n int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
