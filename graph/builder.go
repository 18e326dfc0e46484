package graph

import "sync"

// Graph is the mutable builder for a workflow: it registers nodes, static
// and conditional edges, and the entry point. Call Compile to obtain the
// immutable, executable Workflow.
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	g := graph.New[*graph.State]("organize_and_index")
//	_ = g.AddNode("organize", organize)
//	_ = g.AddNode("index", index)
//	_ = g.AddEdge("organize", "index")
//	_ = g.SetEntryPoint("organize")
//
//	wf, err := g.Compile(graph.WithMaxSteps(10))
//	res, err := wf.Invoke(ctx, graph.NewState(map[string]any{"source": "inbox"}))
type Graph[S any] struct {
	mu sync.RWMutex

	name string

	// nodes maps node names to implementations
	nodes map[string]Node[S]

	// order preserves registration order for rendering
	order []string

	// edges holds at most one static edge per source
	edges []edge

	// conditional holds conditional edges in registration order
	conditional []conditionalEdge[S]

	entryPoint string
}

// New creates an empty graph builder.
func New[S any](name string) *Graph[S] {
	return &Graph[S]{
		name:  name,
		nodes: make(map[string]Node[S]),
	}
}

// Name returns the graph name.
func (g *Graph[S]) Name() string {
	return g.name
}

// AddNode registers a node under a unique name.
//
// Returns error if:
//   - name is empty
//   - node is nil
//   - a node with this name already exists
func (g *Graph[S]) AddNode(name string, node Node[S]) error {
	if name == "" {
		return &EngineError{Message: "node name cannot be empty", Code: "EMPTY_NAME", Err: ErrEmptyName}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil: " + name, Code: "NIL_NODE", Err: ErrNilNode}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[name]; exists {
		return &EngineError{
			Message: "duplicate node name: " + name,
			Code:    "DUPLICATE_NODE",
			Err:     ErrDuplicateNode,
		}
	}

	g.nodes[name] = node
	g.order = append(g.order, name)
	return nil
}

// AddEdge adds an unconditional transition from source to target.
//
// The source must already be registered. The target may be registered later
// (forward references are legal); Compile checks it.
func (g *Graph[S]) AddEdge(source, target string) error {
	if target == "" {
		return &EngineError{Message: "edge target cannot be empty", Code: "EMPTY_NAME", Err: ErrEmptyName}
	}
	return g.addStatic(source, Goto(target))
}

// AddFinish adds an explicit unconditional transition from source to END.
func (g *Graph[S]) AddFinish(source string) error {
	return g.addStatic(source, End())
}

func (g *Graph[S]) addStatic(source string, to Next) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkSource(source); err != nil {
		return err
	}
	for _, e := range g.edges {
		if e.from == source {
			return &EngineError{
				Message: "static edge already defined for " + source + " (to " + e.to.String() + ")",
				Code:    "DUPLICATE_EDGE",
				Err:     ErrDuplicateEdge,
			}
		}
	}

	g.edges = append(g.edges, edge{from: source, to: to})
	return nil
}

// AddConditionalEdge attaches a router to source. After source runs, the
// router is evaluated on the state it returned to select the next hop.
//
// Several conditional edges may share a source; at run time exactly one of
// them must return a non-zero Next. Conditional edges take precedence over a
// static edge from the same source.
func (g *Graph[S]) AddConditionalEdge(source string, router Router[S]) error {
	if router == nil {
		return &EngineError{Message: "router cannot be nil for " + source, Code: "INVALID_ROUTER", Err: ErrInvalidRouter}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkSource(source); err != nil {
		return err
	}
	g.conditional = append(g.conditional, conditionalEdge[S]{from: source, router: router})
	return nil
}

// AddConditionalEdges attaches a selector and branch map to source. The
// selector's key picks the hop from branches; every branch target is checked
// at Compile, and an unmapped key fails the run with ErrUnknownBranch.
//
// Example:
//
//	g.AddConditionalEdges("review", func(s Doc) string {
//	    if s.ReviewPassed {
//	        return "done"
//	    }
//	    return "retry"
//	}, map[string]graph.Next{
//	    "retry": graph.Goto("generate"),
//	    "done":  graph.End(),
//	})
func (g *Graph[S]) AddConditionalEdges(source string, selector Selector[S], branches map[string]Next) error {
	if selector == nil || len(branches) == 0 {
		return &EngineError{
			Message: "conditional edges from " + source + " need a selector and at least one branch",
			Code:    "INVALID_ROUTER",
			Err:     ErrInvalidRouter,
		}
	}
	for key, next := range branches {
		if next.IsZero() {
			return &EngineError{
				Message: "branch " + key + " from " + source + " has no destination",
				Code:    "INVALID_ROUTER",
				Err:     ErrInvalidRouter,
			}
		}
	}

	copied := make(map[string]Next, len(branches))
	for k, v := range branches {
		copied[k] = v
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkSource(source); err != nil {
		return err
	}
	g.conditional = append(g.conditional, conditionalEdge[S]{from: source, selector: selector, branches: copied})
	return nil
}

// SetEntryPoint designates the node at which every run starts. Calling it
// again replaces the previous entry point. Registration is checked by Compile.
func (g *Graph[S]) SetEntryPoint(name string) error {
	if name == "" {
		return &EngineError{Message: "entry point cannot be empty", Code: "EMPTY_NAME", Err: ErrEmptyName}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = name
	return nil
}

// checkSource requires source to be registered. Caller holds g.mu.
func (g *Graph[S]) checkSource(source string) error {
	if source == "" {
		return &EngineError{Message: "edge source cannot be empty", Code: "EMPTY_NAME", Err: ErrEmptyName}
	}
	if _, ok := g.nodes[source]; !ok {
		return &EngineError{
			Message: "edge source is not registered: " + source,
			Code:    "NODE_NOT_FOUND",
			Err:     ErrUnknownNode,
		}
	}
	return nil
}
