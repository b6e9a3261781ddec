// Package metrics provides the engine's Prometheus instrumentation,
// adapted from the teacher's infrastructure/metrics package to the
// fraud-triage surface: run throughput/latency, per-step outcomes,
// circuit-breaker state, action-executor calls, and rate-limit
// rejections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the engine exposes.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	RunsInFlight     prometheus.Gauge
	StepsTotal       *prometheus.CounterVec
	StepDuration     *prometheus.HistogramVec
	FallbacksTotal   *prometheus.CounterVec
	CircuitState     *prometheus.GaugeVec
	ActionsTotal     *prometheus.CounterVec
	RateLimitRejects prometheus.Counter
}

// New creates a Metrics instance and registers every collector against
// registerer. Pass prometheus.DefaultRegisterer in production; tests
// should use prometheus.NewRegistry() so repeated construction across
// test cases never collides on a shared default registry.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_runs_total",
				Help: "Total number of triage runs started, labeled by terminal status.",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_run_duration_seconds",
				Help:    "Triage run wall-clock latency from start to finalize.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
			},
			[]string{"status"},
		),
		RunsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "triage_runs_in_flight",
				Help: "Current number of triage runs with no terminal result yet.",
			},
		),
		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_step_total",
				Help: "Total number of per-step executions, labeled by step name and outcome.",
			},
			[]string{"step", "outcome"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "triage_step_duration_seconds",
				Help:    "Per-step latency.",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2},
			},
			[]string{"step"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_fallback_total",
				Help: "Total number of steps that resolved via fallback value rather than a real result.",
			},
			[]string{"step"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "triage_circuit_state",
				Help: "Circuit breaker state per step (0=closed, 1=open).",
			},
			[]string{"step"},
		),
		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "triage_action_total",
				Help: "Total number of Action Executor calls, labeled by kind and result status.",
			},
			[]string{"kind", "status"},
		),
		RateLimitRejects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "triage_rate_limit_rejections_total",
				Help: "Total number of requests rejected by the fixed-window rate limiter.",
			},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RunsTotal,
			m.RunDuration,
			m.RunsInFlight,
			m.StepsTotal,
			m.StepDuration,
			m.FallbacksTotal,
			m.CircuitState,
			m.ActionsTotal,
			m.RateLimitRejects,
		)
	}

	return m
}

// RecordRun records a finalized run's terminal status and latency.
func (m *Metrics) RecordRun(status string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStep records a single step execution's outcome and latency.
func (m *Metrics) RecordStep(step, outcome string, duration time.Duration, fallback bool) {
	m.StepsTotal.WithLabelValues(step, outcome).Inc()
	m.StepDuration.WithLabelValues(step).Observe(duration.Seconds())
	if fallback {
		m.FallbacksTotal.WithLabelValues(step).Inc()
	}
}

// SetCircuitOpen reflects a step's circuit-breaker state.
func (m *Metrics) SetCircuitOpen(step string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	m.CircuitState.WithLabelValues(step).Set(v)
}

// RecordAction records one Action Executor call.
func (m *Metrics) RecordAction(kind, status string) {
	m.ActionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordRateLimitReject records one rate-limited request.
func (m *Metrics) RecordRateLimitReject() {
	m.RateLimitRejects.Inc()
}
