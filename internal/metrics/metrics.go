// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for sectorpilot.
type Metrics struct {
	// Rebalance runs
	RunsTotal          *prometheus.CounterVec // labels: trigger, outcome
	SuggestionsTotal   *prometheus.CounterVec // labels: action
	GenerateDuration   prometheus.Histogram
	DriftBefore        prometheus.Gauge
	DriftAfterEstimate prometheus.Gauge

	// Suggestion lifecycle
	StatusTransitions *prometheus.CounterVec // labels: status

	// Scoring
	ScoringDuration prometheus.Histogram

	// HTTP
	HTTPRequests *prometheus.CounterVec // labels: method, status

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a private registry
func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorpilot_rebalance_runs_total",
			Help: "Rebalance generation runs by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		SuggestionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorpilot_suggestions_total",
			Help: "Suggestions emitted by the generator",
		}, []string{"action"}),
		GenerateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sectorpilot_generate_duration_seconds",
			Help:    "Time to snapshot, generate and persist a rebalance run",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		DriftBefore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorpilot_drift_before",
			Help: "Total absolute sector drift before the latest run",
		}),
		DriftAfterEstimate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sectorpilot_drift_after_estimate",
			Help: "Estimated total absolute sector drift after the latest run",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorpilot_suggestion_status_transitions_total",
			Help: "Suggestion status changes by new status",
		}, []string{"status"}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sectorpilot_scoring_duration_seconds",
			Help:    "Time to score the full universe",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sectorpilot_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.SuggestionsTotal,
		m.GenerateDuration,
		m.DriftBefore,
		m.DriftAfterEstimate,
		m.StatusTransitions,
		m.ScoringDuration,
		m.HTTPRequests,
		prometheus.NewGoCollector(),
	)

	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registered collectors in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records the outcome of one generation run
func (m *Metrics) ObserveRun(trigger, outcome string, started time.Time) {
	m.RunsTotal.WithLabelValues(trigger, outcome).Inc()
	m.GenerateDuration.Observe(time.Since(started).Seconds())
}
