package graph

import "context"

// Node represents a processing unit in the workflow graph.
//
// Execute receives the state produced by the previous node and returns the
// state handed to the next one. Nodes may mutate and return the same value
// (pointer states such as *State) or return a modified copy (struct states).
//
// Recoverable problems should be recorded in the state and routed around with
// a conditional edge. A non-nil error is fatal: the run stops with status
// Failed and the error is surfaced in the Result.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Execute runs the node's logic against the current state.
	// ctx carries caller-supplied deadlines; the engine never interrupts
	// a node that ignores it.
	Execute(ctx context.Context, state S) (S, error)
}

// Describer is implemented by nodes that carry a human-readable description.
// Descriptions appear in events, logs and Mermaid output.
type Describer interface {
	Description() string
}

// NodeFunc is a function adapter that implements the Node interface.
// It allows using plain functions as nodes without creating custom types.
//
// Example:
//
//	validate := NodeFunc[*State](func(ctx context.Context, s *State) (*State, error) {
//	    if s.GetString("name") == "" {
//	        s.AddError("name is required")
//	    }
//	    return s, nil
//	})
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// Execute implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Execute(ctx context.Context, state S) (S, error) {
	return f(ctx, state)
}

// Describe attaches a description to node.
func Describe[S any](description string, node Node[S]) Node[S] {
	return &describedNode[S]{Node: node, description: description}
}

type describedNode[S any] struct {
	Node[S]
	description string
}

func (d *describedNode[S]) Description() string { return d.description }

// describe returns the node's description or "" when it has none.
func describe[S any](node Node[S]) string {
	if d, ok := node.(Describer); ok {
		return d.Description()
	}
	return ""
}
