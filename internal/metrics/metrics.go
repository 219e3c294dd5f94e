// Package metrics provides Prometheus metrics for the server.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	FileResponses     *prometheus.CounterVec
	TraversalRejected prometheus.Counter

	routes []string
}

// New creates a Metrics instance with a custom registry and all collectors
// registered. routes are the path prefixes used as bounded path labels.
func New(routes ...string) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		routes:   routes,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hexserve_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hexserve_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hexserve_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hexserve_upstream_request_duration_seconds",
			Help:    "Riot API call latency in seconds, up to response headers.",
			Buckets: defaultBuckets,
		}, []string{"method"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hexserve_upstream_responses_total",
			Help: "Total Riot API responses by method and status code.",
		}, []string{"method", "status_code"}),

		FileResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hexserve_file_responses_total",
			Help: "Browse responses by kind (directory, file, not_found, forbidden, error).",
		}, []string{"kind"}),

		TraversalRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hexserve_file_traversal_rejected_total",
			Help: "Browse requests rejected because the path escaped the serve root.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.FileResponses,
		m.TraversalRejected,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// NormalizePath returns a bounded path label: the first configured route
// that path equals or sits under, "/" for the root page, else "other".
func (m *Metrics) NormalizePath(path string) string {
	if path == "/" {
		return "/"
	}
	for _, prefix := range m.routes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return prefix
		}
	}
	return "other"
}
