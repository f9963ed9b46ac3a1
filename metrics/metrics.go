// Package metrics provides Prometheus metrics for the media server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// fileSizeBuckets spans 1KiB to 1GiB.
var fileSizeBuckets = prometheus.ExponentialBuckets(1024, 4, 11)

// Metrics holds all Prometheus metric collectors for the server.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Responses counts dispatcher outcomes by status and backend.
	Responses *prometheus.CounterVec
	// ServedFileBytes is handed to the direct backend as its size observer.
	ServedFileBytes prometheus.Histogram
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "privatemedia_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "privatemedia_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "privatemedia_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "privatemedia_responses_total",
			Help: "Media responses by outcome and delivery backend.",
		}, []string{"status", "backend"}),

		ServedFileBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "privatemedia_served_file_bytes",
			Help:    "Size of files streamed by the direct backend.",
			Buckets: fileSizeBuckets,
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.Responses,
		m.ServedFileBytes,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveResponse records one dispatcher outcome.
func (m *Metrics) ObserveResponse(status, backend string) {
	m.Responses.WithLabelValues(status, backend).Inc()
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other".
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}
