package graph

// Next is the tagged next-hop produced by routers: either continue at a
// named node or end the run. Because END is a tag and not a name, no node
// name can ever collide with it.
//
// The zero value means "no decision"; a router returning it defers to the
// other conditional edges on the same node.
type Next struct {
	// To is the node to continue at. Mutually exclusive with Terminal.
	To string

	// Terminal indicates the run should finish successfully.
	Terminal bool
}

// Goto returns a Next that continues at the named node.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// End returns a Next that finishes the run successfully.
func End() Next {
	return Next{Terminal: true}
}

// Stop is an alias for End.
func Stop() Next {
	return End()
}

// IsZero reports whether the hop carries no decision.
func (n Next) IsZero() bool {
	return !n.Terminal && n.To == ""
}

// String renders the hop as its target name, or "END".
func (n Next) String() string {
	switch {
	case n.Terminal:
		return "END"
	case n.To != "":
		return n.To
	default:
		return "<none>"
	}
}

// Router computes the next hop from the state just produced by the source node.
// Routers should be pure functions of the state.
type Router[S any] func(state S) Next

// Selector computes a branch key from the state. It is paired with a branch
// map in AddConditionalEdges.
type Selector[S any] func(state S) string

// edge is an unconditional transition.
type edge struct {
	from string
	to   Next
}

// conditionalEdge is a data-driven transition. Either router is set, or
// selector and branches are set.
type conditionalEdge[S any] struct {
	from     string
	router   Router[S]
	selector Selector[S]
	branches map[string]Next
}

// resolve evaluates the edge against state.
func (c conditionalEdge[S]) resolve(state S) (Next, error) {
	if c.router != nil {
		return c.router(state), nil
	}
	key := c.selector(state)
	next, ok := c.branches[key]
	if !ok {
		return Next{}, &RouteError{From: c.from, Hop: key, Err: ErrUnknownBranch}
	}
	return next, nil
}
