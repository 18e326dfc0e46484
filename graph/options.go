package graph

import (
	"log/slog"
	"time"

	"github.com/agentlib/workgraph/graph/emit"
)

// Options configures a compiled Workflow.
//
// Zero values are valid: no step budget, no node timeout, no emitter, no
// metrics, and a logger that discards everything.
type Options struct {
	// MaxSteps is the default step budget for each Invoke. When a run has
	// executed MaxSteps nodes and would execute another, it fails with
	// ErrMaxStepsExceeded. If 0, cycles run unbounded.
	MaxSteps int

	// Emitter receives observability events. May be nil.
	Emitter emit.Emitter

	// Metrics records Prometheus metrics. May be nil.
	Metrics *PrometheusMetrics

	// Logger receives debug output from the executor loop. May be nil.
	Logger *slog.Logger

	// NodeTimeout bounds each node execution. If 0, nodes are bounded only
	// by the run context.
	NodeTimeout time.Duration
}

// Option is a functional option for Compile.
//
// Example:
//
//	wf, err := g.Compile(
//	    graph.WithMaxSteps(50),
//	    graph.WithEmitter(emit.NewLogEmitter(logger)),
//	)
type Option func(*Options) error

// WithMaxSteps sets the default step budget applied to every Invoke.
//
// Default: 0 (no limit). Workflow loops (A → B → A) are fully supported;
// use a budget to stop a run whose router never reaches END.
//
// Recommended values:
//   - Straight pipelines: the node count
//   - Supervisor loops: workers × max rounds + supervisor visits
func WithMaxSteps(n int) Option {
	return func(o *Options) error {
		if n < 0 {
			return &EngineError{
				Message: "max steps cannot be negative",
				Code:    "INVALID_OPTION",
			}
		}
		o.MaxSteps = n
		return nil
	}
}

// WithEmitter sets the event emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Options) error {
		o.Emitter = e
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection.
//
// Example:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	wf, _ := g.Compile(graph.WithMetrics(metrics))
//
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
func WithMetrics(m *PrometheusMetrics) Option {
	return func(o *Options) error {
		o.Metrics = m
		return nil
	}
}

// WithLogger sets the logger used for executor debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		o.Logger = l
		return nil
	}
}

// WithNodeTimeout limits how long a single node may run. A node still
// running when the timeout fires sees its context cancelled, and the run
// fails with ErrNodeTimeout.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return &EngineError{
				Message: "node timeout cannot be negative",
				Code:    "INVALID_OPTION",
			}
		}
		o.NodeTimeout = d
		return nil
	}
}

// runConfig holds per-Invoke settings.
type runConfig struct {
	runID    string
	maxSteps int
}

// RunOption configures a single Invoke call.
type RunOption func(*runConfig)

// WithStepBudget overrides the workflow's MaxSteps for one run. 0 disables
// the budget for that run.
func WithStepBudget(n int) RunOption {
	return func(c *runConfig) {
		if n < 0 {
			n = 0
		}
		c.maxSteps = n
	}
}

// WithRunID sets the run identifier used in events and the Result.
// By default each run gets a random UUID.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}
