package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects workflow execution metrics.
//
// Metrics exposed (all namespaced with "workgraph_"):
//
//  1. runs_total (counter): finished runs.
//     Labels: workflow, status (completed/failed).
//
//  2. node_executions_total (counter): finished node executions.
//     Labels: workflow, node, status (success/error).
//
//  3. step_latency_ms (histogram): node execution duration in milliseconds.
//     Labels: workflow, node, status.
//     Buckets: [1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000].
//
//  4. inflight_runs (gauge): runs currently executing.
//     Labels: workflow.
//
//  5. step_budget_exhausted_total (counter): runs stopped by their step budget.
//     Labels: workflow.
//
// Run IDs are deliberately not used as labels; they live in events instead.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	wf, _ := g.Compile(graph.WithMetrics(metrics))
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type PrometheusMetrics struct {
	runs            *prometheus.CounterVec
	nodeExecutions  *prometheus.CounterVec
	stepLatency     *prometheus.HistogramVec
	inflightRuns    *prometheus.GaugeVec
	budgetExhausted *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics creates and registers all workflow metrics with
// registry. A nil registry uses prometheus.DefaultRegisterer.
//
// Registering twice with the same registry panics, so create one
// PrometheusMetrics per registry and share it between workflows.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,

		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workgraph",
			Name:      "runs_total",
			Help:      "Finished workflow runs by final status",
		}, []string{"workflow", "status"}),

		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workgraph",
			Name:      "node_executions_total",
			Help:      "Finished node executions by outcome",
		}, []string{"workflow", "node", "status"}),

		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workgraph",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"workflow", "node", "status"}),

		inflightRuns: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "workgraph",
			Name:      "inflight_runs",
			Help:      "Workflow runs currently executing",
		}, []string{"workflow"}),

		budgetExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workgraph",
			Name:      "step_budget_exhausted_total",
			Help:      "Runs stopped because they reached their step budget",
		}, []string{"workflow"}),
	}
}

func (pm *PrometheusMetrics) on() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RecordNode records one finished node execution. status is "success" or "error".
func (pm *PrometheusMetrics) RecordNode(workflow, node string, latency time.Duration, status string) {
	if !pm.on() {
		return
	}
	pm.nodeExecutions.WithLabelValues(workflow, node, status).Inc()
	pm.stepLatency.WithLabelValues(workflow, node, status).Observe(float64(latency.Milliseconds()))
}

// RunStarted increments the inflight gauge for workflow.
func (pm *PrometheusMetrics) RunStarted(workflow string) {
	if !pm.on() {
		return
	}
	pm.inflightRuns.WithLabelValues(workflow).Inc()
}

// RunFinished decrements the inflight gauge and counts the run under status.
func (pm *PrometheusMetrics) RunFinished(workflow string, status Status) {
	if !pm.on() {
		return
	}
	pm.inflightRuns.WithLabelValues(workflow).Dec()
	pm.runs.WithLabelValues(workflow, status.String()).Inc()
}

// BudgetExhausted counts a run stopped by its step budget.
func (pm *PrometheusMetrics) BudgetExhausted(workflow string) {
	if !pm.on() {
		return
	}
	pm.budgetExhausted.WithLabelValues(workflow).Inc()
}

// Disable temporarily disables metric recording (useful for testing).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable re-enables metric recording after Disable().
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
