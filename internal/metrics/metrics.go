// Package metrics exposes Prometheus instrumentation for the console.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all console metrics.
type Registry struct {
	// Inbound API metrics
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Outbound (Mist cloud) metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec

	// Guest authorization operations
	GuestOperations *prometheus.CounterVec

	// System metrics
	Uptime prometheus.Gauge
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestgate_api_requests_total",
		Help: "Total HTTP requests served by the console API",
	}, []string{"method", "path", "status"})

	r.APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guestgate_api_request_duration_seconds",
		Help:    "HTTP request latency by path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	r.UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestgate_upstream_requests_total",
		Help: "Total requests issued to the Mist cloud API",
	}, []string{"endpoint", "status"})

	r.UpstreamLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "guestgate_upstream_request_duration_seconds",
		Help:    "Mist cloud API request latency by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	r.GuestOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guestgate_guest_operations_total",
		Help: "Guest authorization operations by action and outcome",
	}, []string{"action", "outcome"})

	r.Uptime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guestgate_uptime_seconds",
		Help: "Seconds since the console started",
	})

	return r
}
