package graph

import "time"

// Status is the lifecycle position of a run.
type Status int

const (
	// StatusPending means the run has not started.
	StatusPending Status = iota

	// StatusRunning means nodes are executing.
	StatusRunning

	// StatusCompleted means the run reached END.
	StatusCompleted

	// StatusFailed means a node, a router or the executor itself failed.
	StatusFailed

	// StatusPaused is never set by the engine. Callers that suspend work
	// (for example awaiting human review) report it themselves; see
	// State.MarkPaused.
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Step is one completed node execution in a run's path.
type Step struct {
	Node      string
	StartedAt time.Time
	Duration  time.Duration
}

// Result is the outcome of one Invoke call.
type Result[S any] struct {
	// RunID identifies the run in events and logs.
	RunID string

	// Workflow is the name of the workflow that ran.
	Workflow string

	// State is the last state produced. When a node fails it is the state
	// that was passed into that node.
	State S

	// NodesExecuted counts Execute calls that returned successfully.
	NodesExecuted int

	// Success is true iff Status is StatusCompleted.
	Success bool

	Status Status

	// Err is the failure cause, nil on success.
	Err error

	// FailedNode names the node that failed or panicked, if any.
	FailedNode string

	// Path lists the completed executions in order.
	Path []Step

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run.
func (r Result[S]) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Visited returns the node names of Path in order.
func (r Result[S]) Visited() []string {
	names := make([]string, len(r.Path))
	for i, step := range r.Path {
		names[i] = step.Node
	}
	return names
}

// Counts returns how many times each node completed.
func (r Result[S]) Counts() map[string]int {
	counts := make(map[string]int, len(r.Path))
	for _, step := range r.Path {
		counts[step.Node]++
	}
	return counts
}
