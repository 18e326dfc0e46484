package graph

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/agentlib/workgraph/graph/emit"
)

// Invoke runs the workflow from its entry point until a route reaches END
// or something fails.
//
// The loop, per node:
//  1. Stop with ErrMaxStepsExceeded if the step budget is spent.
//  2. Stop with the context error if ctx is done.
//  3. Execute the node. An error or panic fails the run and the state that
//     was passed in is returned.
//  4. Resolve the next hop: conditional edges (exactly one must decide),
//     else the static edge, else END.
//
// The returned error is the same value as Result.Err. Result is always
// populated, including on failure.
func (w *Workflow[S]) Invoke(ctx context.Context, initial S, opts ...RunOption) (Result[S], error) {
	cfg := runConfig{maxSteps: w.opts.MaxSteps}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runID == "" {
		cfg.runID = uuid.NewString()
	}

	r := &run[S]{
		wf:  w,
		cfg: cfg,
		res: Result[S]{
			RunID:     cfg.runID,
			Workflow:  w.name,
			State:     initial,
			Status:    StatusRunning,
			StartedAt: time.Now(),
		},
	}

	w.opts.Metrics.RunStarted(w.name)
	r.emit(emit.MsgRunStart, 0, "", map[string]any{"entry_point": w.entryPoint, "max_steps": cfg.maxSteps})
	w.opts.Logger.Debug("run started", "workflow", w.name, "run_id", cfg.runID, "entry_point", w.entryPoint)

	err := r.loop(ctx, initial)
	return r.finish(err), err
}

// run holds the mutable bookkeeping of a single Invoke call.
type run[S any] struct {
	wf  *Workflow[S]
	cfg runConfig
	res Result[S]
}

func (r *run[S]) loop(ctx context.Context, state S) error {
	w := r.wf
	current := w.entryPoint

	for {
		if r.cfg.maxSteps > 0 && r.res.NodesExecuted >= r.cfg.maxSteps {
			w.opts.Metrics.BudgetExhausted(w.name)
			return &EngineError{
				Message: fmt.Sprintf("workflow %s stopped before %s after %d steps", w.name, current, r.res.NodesExecuted),
				Code:    "MAX_STEPS_EXCEEDED",
				Err:     ErrMaxStepsExceeded,
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		node := w.nodes[current]
		step := r.res.NodesExecuted + 1

		var startMeta map[string]any
		if desc := describe(node); desc != "" {
			startMeta = map[string]any{"description": desc}
		}
		r.emit(emit.MsgNodeStart, step, current, startMeta)
		w.opts.Logger.Debug("executing node", "workflow", w.name, "run_id", r.cfg.runID, "node", current, "step", step)

		started := time.Now()
		nodeCtx := emit.WithOrigin(ctx, emit.Origin{RunID: r.cfg.runID, Workflow: w.name, NodeID: current, Step: step})
		next, err := executeWithTimeout(nodeCtx, current, node, state, w.opts.NodeTimeout)
		elapsed := time.Since(started)

		if err != nil {
			r.res.FailedNode = current
			w.opts.Metrics.RecordNode(w.name, current, elapsed, "error")
			r.emit(emit.MsgNodeError, step, current, map[string]any{
				"error":       err.Error(),
				"duration_ms": elapsed.Milliseconds(),
			})
			return err
		}

		state = next
		r.res.State = state
		r.res.NodesExecuted++
		r.res.Path = append(r.res.Path, Step{Node: current, StartedAt: started, Duration: elapsed})
		w.opts.Metrics.RecordNode(w.name, current, elapsed, "success")

		hop, err := w.route(current, state)
		if err != nil {
			r.emit(emit.MsgNodeError, step, current, map[string]any{"error": err.Error()})
			return err
		}

		r.emit(emit.MsgNodeEnd, step, current, map[string]any{
			"duration_ms": elapsed.Milliseconds(),
			"next":        hop.String(),
		})

		if hop.Terminal {
			return nil
		}
		current = hop.To
	}
}

// execute runs one node, converting errors and panics into the engine's
// error types.
func execute[S any](ctx context.Context, name string, node Node[S], state S) (out S, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = state
			err = &PanicError{NodeID: name, Value: rec, Stack: string(debug.Stack())}
		}
	}()

	out, err = node.Execute(ctx, state)
	if err != nil {
		return state, &NodeError{Message: err.Error(), NodeID: name, Cause: err}
	}
	return out, nil
}

// route picks the hop after from, given the state from just produced.
func (w *Workflow[S]) route(from string, state S) (Next, error) {
	if edges := w.conditional[from]; len(edges) > 0 {
		var (
			chosen  Next
			decided []string
		)
		for _, c := range edges {
			next, err := resolveRecovered(c, state)
			if err != nil {
				return Next{}, err
			}
			if next.IsZero() {
				continue
			}
			chosen = next
			decided = append(decided, next.String())
		}

		switch len(decided) {
		case 0:
			return Next{}, &RouteError{From: from, Err: ErrNoRoute}
		case 1:
			return w.checkHop(from, chosen)
		default:
			return Next{}, &RouteError{From: from, Hop: fmt.Sprint(decided), Err: ErrAmbiguousRoute}
		}
	}

	if next, ok := w.static[from]; ok {
		return next, nil
	}
	return End(), nil
}

// resolveRecovered evaluates c, turning a panic in user routing code into a
// route error so the run still finishes.
func resolveRecovered[S any](c conditionalEdge[S], state S) (next Next, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			next = Next{}
			err = &RouteError{From: c.from, Err: fmt.Errorf("%w: %v", ErrRouterPanic, rec)}
		}
	}()
	return c.resolve(state)
}

func (w *Workflow[S]) checkHop(from string, next Next) (Next, error) {
	if next.Terminal {
		return next, nil
	}
	if _, ok := w.nodes[next.To]; !ok {
		return Next{}, &RouteError{From: from, Hop: next.To, Err: ErrUnknownNode}
	}
	return next, nil
}

func (r *run[S]) finish(err error) Result[S] {
	w := r.wf
	r.res.FinishedAt = time.Now()
	r.res.Err = err
	if err == nil {
		r.res.Status = StatusCompleted
		r.res.Success = true
	} else {
		r.res.Status = StatusFailed
	}

	meta := map[string]any{
		"status":         r.res.Status.String(),
		"nodes_executed": r.res.NodesExecuted,
		"duration_ms":    r.res.Duration().Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
		if r.res.FailedNode != "" {
			meta["failed_node"] = r.res.FailedNode
		}
	}
	r.emit(emit.MsgRunEnd, r.res.NodesExecuted, "", meta)
	w.opts.Metrics.RunFinished(w.name, r.res.Status)

	logArgs := []any{
		"workflow", w.name,
		"run_id", r.res.RunID,
		"status", r.res.Status.String(),
		"nodes_executed", r.res.NodesExecuted,
	}
	if err != nil {
		if errors.Is(err, ErrMaxStepsExceeded) {
			logArgs = append(logArgs, "budget", r.cfg.maxSteps)
		}
		logArgs = append(logArgs, "error", err)
	}
	w.opts.Logger.Debug("run finished", logArgs...)

	return r.res
}

func (r *run[S]) emit(msg string, step int, node string, meta map[string]any) {
	if r.wf.opts.Emitter == nil {
		return
	}
	r.wf.opts.Emitter.Emit(emit.Event{
		RunID:    r.cfg.runID,
		Workflow: r.wf.name,
		Step:     step,
		NodeID:   node,
		Msg:      msg,
		Meta:     meta,
	})
}
