package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the agent core. A nil *Metrics
// is valid everywhere: every record method no-ops, so components work
// unchanged with observability absent.
type Metrics struct {
	registry *prometheus.Registry

	// Model client metrics
	ModelCallsTotal   *prometheus.CounterVec
	ModelCallDuration *prometheus.HistogramVec
	ModelRetriesTotal prometheus.Counter
	BreakerOpensTotal prometheus.Counter
	BreakerSkipsTotal prometheus.Counter

	// Tool metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// Agent metrics
	AgentStepsTotal   prometheus.Counter
	AgentRunsTotal    *prometheus.CounterVec
	CompressionsTotal *prometheus.CounterVec
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ant_model_calls_total",
				Help: "Total number of model invocations",
			},
			[]string{"provider", "status"},
		),
		ModelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ant_model_call_duration_seconds",
				Help:    "Duration of model invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ModelRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ant_model_retries_total",
				Help: "Total number of retried model invocations",
			},
		),
		BreakerOpensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ant_breaker_opens_total",
				Help: "Total number of circuit breaker open transitions",
			},
		),
		BreakerSkipsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ant_breaker_skips_total",
				Help: "Total number of attempts skipped because the breaker was open",
			},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ant_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ant_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),

		AgentStepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ant_agent_steps_total",
				Help: "Total number of agent steps (model invocations)",
			},
		),
		AgentRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ant_agent_runs_total",
				Help: "Total number of agent runs by terminal reason",
			},
			[]string{"reason"},
		),
		CompressionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ant_compressions_total",
				Help: "Total number of context compressions by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.ModelCallsTotal,
		m.ModelCallDuration,
		m.ModelRetriesTotal,
		m.BreakerOpensTotal,
		m.BreakerSkipsTotal,
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.AgentStepsTotal,
		m.AgentRunsTotal,
		m.CompressionsTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordModelCall records one provider call with its outcome.
func (m *Metrics) RecordModelCall(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ModelCallsTotal.WithLabelValues(provider, status).Inc()
	m.ModelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRetry records one retried attempt.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.ModelRetriesTotal.Inc()
}

// RecordBreakerOpen records a closed-to-open breaker transition.
func (m *Metrics) RecordBreakerOpen() {
	if m == nil {
		return
	}
	m.BreakerOpensTotal.Inc()
}

// RecordBreakerSkip records an attempt short-circuited by an open breaker.
func (m *Metrics) RecordBreakerSkip() {
	if m == nil {
		return
	}
	m.BreakerSkipsTotal.Inc()
}

// RecordToolExecution records one tool execution with its outcome
// (success, failure, timeout, not_found, invalid_args).
func (m *Metrics) RecordToolExecution(tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordAgentStep records one agent step.
func (m *Metrics) RecordAgentStep() {
	if m == nil {
		return
	}
	m.AgentStepsTotal.Inc()
}

// RecordAgentRun records a finished agent run by terminal reason.
func (m *Metrics) RecordAgentRun(reason string) {
	if m == nil {
		return
	}
	m.AgentRunsTotal.WithLabelValues(reason).Inc()
}

// RecordCompression records one compression by outcome (summarized or
// discarded).
func (m *Metrics) RecordCompression(outcome string) {
	if m == nil {
		return
	}
	m.CompressionsTotal.WithLabelValues(outcome).Inc()
}
