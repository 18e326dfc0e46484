package graph

import (
	"errors"
	"io"
	"log/slog"
)

// Workflow is the immutable, validated, executable form of a Graph.
//
// A Workflow holds no per-run state: Invoke may be called any number of
// times, including concurrently, as long as each call gets its own state
// value. Mutating the source Graph after Compile never affects it.
type Workflow[S any] struct {
	name       string
	entryPoint string

	nodes map[string]Node[S]
	order []string

	// static maps a source to its unconditional hop
	static map[string]Next

	// conditional maps a source to its conditional edges in registration order
	conditional map[string][]conditionalEdge[S]

	opts Options
}

// Compile validates the graph and freezes it into a Workflow.
//
// Validation reports every problem found, joined into one error:
//   - the entry point is set and registered
//   - every edge source is registered
//   - every static edge target and branch-map target (except END) is registered
//
// Cycles are accepted; bound them with WithMaxSteps or WithStepBudget.
func (g *Graph[S]) Compile(opts ...Option) (*Workflow[S], error) {
	var o Options
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	if g.entryPoint == "" {
		errs = append(errs, &EngineError{
			Message: "entry point not set (call SetEntryPoint before Compile)",
			Code:    "NO_ENTRY_POINT",
			Err:     ErrNoEntryPoint,
		})
	} else if _, ok := g.nodes[g.entryPoint]; !ok {
		errs = append(errs, &EngineError{
			Message: "entry point is not registered: " + g.entryPoint,
			Code:    "NODE_NOT_FOUND",
			Err:     ErrUnknownNode,
		})
	}

	checkTarget := func(from string, to Next) {
		if to.Terminal {
			return
		}
		if _, ok := g.nodes[to.To]; !ok {
			errs = append(errs, &EngineError{
				Message: "edge " + from + " -> " + to.To + " targets an unregistered node",
				Code:    "NODE_NOT_FOUND",
				Err:     ErrUnknownNode,
			})
		}
	}

	static := make(map[string]Next, len(g.edges))
	for _, e := range g.edges {
		if _, ok := g.nodes[e.from]; !ok {
			errs = append(errs, &EngineError{Message: "edge source is not registered: " + e.from, Code: "NODE_NOT_FOUND", Err: ErrUnknownNode})
		}
		checkTarget(e.from, e.to)
		static[e.from] = e.to
	}

	conditional := make(map[string][]conditionalEdge[S])
	for _, c := range g.conditional {
		if _, ok := g.nodes[c.from]; !ok {
			errs = append(errs, &EngineError{Message: "conditional edge source is not registered: " + c.from, Code: "NODE_NOT_FOUND", Err: ErrUnknownNode})
		}
		for _, next := range c.branches {
			checkTarget(c.from, next)
		}
		conditional[c.from] = append(conditional[c.from], c)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	nodes := make(map[string]Node[S], len(g.nodes))
	for k, v := range g.nodes {
		nodes[k] = v
	}
	order := append([]string(nil), g.order...)

	for from, next := range static {
		if _, shadowed := conditional[from]; shadowed {
			o.Logger.Debug("static edge shadowed by conditional edges",
				"workflow", g.name, "node", from, "static_target", next.String())
		}
	}

	return &Workflow[S]{
		name:        g.name,
		entryPoint:  g.entryPoint,
		nodes:       nodes,
		order:       order,
		static:      static,
		conditional: conditional,
		opts:        o,
	}, nil
}

// Name returns the workflow name.
func (w *Workflow[S]) Name() string {
	return w.name
}

// EntryPoint returns the node at which runs start.
func (w *Workflow[S]) EntryPoint() string {
	return w.entryPoint
}

// Nodes returns the registered node names in registration order.
func (w *Workflow[S]) Nodes() []string {
	return append([]string(nil), w.order...)
}
