// Package metrics exposes Prometheus collectors for the commerce API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the application's Prometheus collectors behind a
// dedicated registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ordersPlaced  *prometheus.CounterVec
	refundsIssued *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered.
func New(service string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Total number of order placement attempts.",
		}, []string{"status"}),
		refundsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Subsystem: "orders",
			Name:      "refunds_total",
			Help:      "Total number of refund attempts.",
		}, []string{"status"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Total number of authentication attempts.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.ordersPlaced,
		m.refundsIssued,
		m.authAttempts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementInFlight marks the start of an HTTP request.
func (m *Metrics) IncrementInFlight() { m.httpInFlight.Inc() }

// DecrementInFlight marks the end of an HTTP request.
func (m *Metrics) DecrementInFlight() { m.httpInFlight.Dec() }

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOrderPlaced records an order placement outcome.
func (m *Metrics) RecordOrderPlaced(success bool) {
	m.ordersPlaced.WithLabelValues(outcome(success)).Inc()
}

// RecordRefund records a refund outcome.
func (m *Metrics) RecordRefund(success bool) {
	m.refundsIssued.WithLabelValues(outcome(success)).Inc()
}

// RecordAuthAttempt records an authentication attempt for the given
// method ("password", "federated" or "register").
func (m *Metrics) RecordAuthAttempt(method string, success bool) {
	m.authAttempts.WithLabelValues(method, outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
