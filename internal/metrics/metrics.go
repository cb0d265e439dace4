// Package metrics holds the Prometheus counters for extraction and batch commits.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pantrytrack"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	extractions      *prometheus.CounterVec
	extractionErrors *prometheus.CounterVec
	batchItems       *prometheus.CounterVec
}

// New creates the counters on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_total",
			Help:      "Successful receipt extractions by the parser stage that produced the items.",
		}, []string{"stage"}),
		extractionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_errors_total",
			Help:      "Failed receipt extractions by error kind.",
		}, []string{"kind"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Batch commit items by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.extractions,
		m.extractionErrors,
		m.batchItems,
	)
	return m
}

func (m *Metrics) ExtractionSucceeded(stage string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(stage).Inc()
}

func (m *Metrics) ExtractionFailed(kind string) {
	if m == nil {
		return
	}
	m.extractionErrors.WithLabelValues(kind).Inc()
}

// BatchCommitted counts created and failed items of one batch.
func (m *Metrics) BatchCommitted(created, failed int) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues("created").Add(float64(created))
	m.batchItems.WithLabelValues("failed").Add(float64(failed))
}

// Registry exposes the underlying registry, mainly for assertions in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
