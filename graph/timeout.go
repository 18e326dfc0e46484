package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// executeWithTimeout runs the node under a context bounded by timeout.
// A node whose deadline passed fails even if it returned normally.
// Cancellation of the parent context is reported as is.
func executeWithTimeout[S any](ctx context.Context, name string, node Node[S], state S, timeout time.Duration) (S, error) {
	if timeout <= 0 {
		return execute(ctx, name, node, state)
	}

	nodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := execute(nodeCtx, name, node, state)

	if errors.Is(nodeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		timeoutErr := &EngineError{
			Message: fmt.Sprintf("node %s exceeded timeout of %v", name, timeout),
			Code:    "NODE_TIMEOUT",
			Err:     ErrNodeTimeout,
		}
		return state, &NodeError{Message: timeoutErr.Message, NodeID: name, Cause: timeoutErr}
	}
	return out, err
}
