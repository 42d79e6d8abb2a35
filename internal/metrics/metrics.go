// Package metrics exposes Prometheus collectors for the Name Server and
// Storage Server, following the same client_golang registration pattern the
// teacher wires its adapters through.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ConnMetrics implements pkg/server.Metrics for one listener.
type ConnMetrics struct {
	accepted prometheus.Counter
	closed   prometheus.Counter
	forced   prometheus.Counter
	active   prometheus.Gauge
}

// NewConnMetrics registers (or reuses) the connection counters for a named
// listener, e.g. "ns", "ss_control", "ss_client".
func NewConnMetrics(reg prometheus.Registerer, listener string) *ConnMetrics {
	factory := promauto.With(reg)
	return &ConnMetrics{
		accepted: factory.NewCounter(prometheus.CounterOpts{
			Name:        "dfs_connections_accepted_total",
			Help:        "Total TCP connections accepted.",
			ConstLabels: prometheus.Labels{"listener": listener},
		}),
		closed: factory.NewCounter(prometheus.CounterOpts{
			Name:        "dfs_connections_closed_total",
			Help:        "Total TCP connections closed gracefully.",
			ConstLabels: prometheus.Labels{"listener": listener},
		}),
		forced: factory.NewCounter(prometheus.CounterOpts{
			Name:        "dfs_connections_force_closed_total",
			Help:        "Total TCP connections force-closed during shutdown timeout.",
			ConstLabels: prometheus.Labels{"listener": listener},
		}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "dfs_connections_active",
			Help:        "Current number of active TCP connections.",
			ConstLabels: prometheus.Labels{"listener": listener},
		}),
	}
}

func (m *ConnMetrics) RecordConnectionAccepted()   { m.accepted.Inc() }
func (m *ConnMetrics) RecordConnectionClosed()     { m.closed.Inc() }
func (m *ConnMetrics) RecordConnectionForceClosed() { m.forced.Inc() }
func (m *ConnMetrics) SetActiveConnections(n int32) { m.active.Set(float64(n)) }

// OpMetrics tracks per-operation counts and latency, shared by NS and SS
// handler dispatch loops.
type OpMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewOpMetrics registers the request/error/latency vectors for component
// (e.g. "nameserver", "storageserver"), labeled by operation name.
func NewOpMetrics(reg prometheus.Registerer, component string) *OpMetrics {
	factory := promauto.With(reg)
	return &OpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "dfs_requests_total",
			Help:        "Total requests handled, by operation.",
			ConstLabels: prometheus.Labels{"component": component},
		}, []string{"op"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "dfs_request_errors_total",
			Help:        "Total request errors, by operation and error code.",
			ConstLabels: prometheus.Labels{"component": component},
		}, []string{"op", "code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "dfs_request_duration_seconds",
			Help:        "Request latency in seconds, by operation.",
			ConstLabels: prometheus.Labels{"component": component},
			Buckets:     prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// Observe records one completed request: op name, error code string ("" on
// success), and duration in seconds.
func (m *OpMetrics) Observe(op, code string, seconds float64) {
	m.requests.WithLabelValues(op).Inc()
	if code != "" {
		m.errors.WithLabelValues(op, code).Inc()
	}
	m.latency.WithLabelValues(op).Observe(seconds)
}

// ServeHTTP starts a blocking HTTP server exposing /metrics on addr. Callers
// run it in its own goroutine.
func ServeHTTP(addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
