package emit

import "context"

// Origin locates an event source inside a run: the workflow, the run and
// the node currently executing.
type Origin struct {
	RunID    string
	Workflow string
	NodeID   string
	Step     int
}

type originKey struct{}

// WithOrigin returns a context carrying o. The engine attaches one to the
// context handed to every node.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFrom returns the Origin attached to ctx, if any.
func OriginFrom(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok
}

// Event returns an event of kind msg stamped with o.
func (o Origin) Event(msg string, meta map[string]any) Event {
	return Event{RunID: o.RunID, Workflow: o.Workflow, Step: o.Step, NodeID: o.NodeID, Msg: msg, Meta: meta}
}
