// Package metrics exposes Prometheus instrumentation for the API on a
// dedicated registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Connect outcome labels.
const (
	OutcomeMatched  = "matched"
	OutcomeNoMatch  = "no_match"
	OutcomeNoUsers  = "no_users"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the API.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registrationsTotal prometheus.Counter
	connectsTotal      *prometheus.CounterVec
	matchErrorsTotal   prometheus.Counter

	registry *prometheus.Registry
}

// New creates a metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superconnector_http_requests_total",
				Help: "Total number of HTTP requests by method, path and status",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "superconnector_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		registrationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "superconnector_registrations_total",
				Help: "Total number of successful user registrations",
			},
		),

		connectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "superconnector_connects_total",
				Help: "Total number of connect requests by outcome",
			},
			[]string{"outcome"},
		),

		matchErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "superconnector_match_errors_total",
				Help: "Total number of match service failures",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.registrationsTotal,
		m.connectsTotal,
		m.matchErrorsTotal,
	)

	return m
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRegistration records a successful registration.
func (m *Metrics) RecordRegistration() {
	m.registrationsTotal.Inc()
}

// RecordConnect records a connect request with its outcome label.
func (m *Metrics) RecordConnect(outcome string) {
	m.connectsTotal.WithLabelValues(outcome).Inc()
}

// RecordMatchError records a match service failure.
func (m *Metrics) RecordMatchError() {
	m.matchErrorsTotal.Inc()
}

// Handler returns an HTTP handler serving the registry in exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
