// Package metrics exposes Prometheus instrumentation for Meridian Accounts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDenied   = "denied"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	logins     *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_admin_operations_total",
			Help: "Administration operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordOperation counts one administration operation.
func (m *Metrics) RecordOperation(operation, outcome string) {
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
