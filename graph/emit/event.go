// Package emit delivers workflow execution events to observability backends.
package emit

// Event kinds emitted by the executor, in the order a run produces them.
const (
	MsgRunStart  = "run_start"
	MsgNodeStart = "node_start"
	MsgNodeEnd   = "node_end"
	MsgNodeError = "node_error"
	MsgRunEnd    = "run_end"

	// MsgModelCall is emitted by metered chat models from inside a node.
	MsgModelCall = "model_call"
)

// Event is a single observability record produced while a workflow runs.
//
// Run-level events (run_start, run_end) leave NodeID empty. Node-level
// events carry the 1-indexed Step of the node in the run's path.
type Event struct {
	// RunID identifies the Invoke call that produced the event.
	RunID string

	// Workflow is the name of the compiled workflow.
	Workflow string

	// Step is the position of the node in the execution path (1-indexed).
	// For run_end it is the number of nodes executed.
	Step int

	// NodeID is the node the event refers to.
	NodeID string

	// Msg is the event kind, one of the Msg* constants.
	Msg string

	// Meta carries event-specific fields. Common keys:
	//   - "duration_ms": node or run duration in milliseconds
	//   - "error": error text
	//   - "status": final run status (run_end)
	//   - "next": the hop chosen after a node (node_end)
	//   - "model", "tokens_in", "tokens_out", "cost_usd" (model_call)
	Meta map[string]any
}
