// Package tool defines the tool collaborator that workflow nodes call to
// reach external systems such as OCR endpoints, search APIs, or webhooks.
package tool

import (
	"context"
	"errors"
)

// ErrInvalidInput is returned when a tool's input is missing a required
// parameter or has one of the wrong type.
var ErrInvalidInput = errors.New("tool: invalid input")

// Tool is an executable action with structured input and output.
//
// Call must honor ctx cancellation. A nil input is valid for tools that
// take no parameters.
type Tool interface {
	// Name is the tool identifier, lowercase with underscores.
	Name() string

	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Func adapts a function into a Tool.
func Func(name string, fn func(ctx context.Context, input map[string]any) (map[string]any, error)) Tool {
	return funcTool{name: name, fn: fn}
}

type funcTool struct {
	name string
	fn   func(context.Context, map[string]any) (map[string]any, error)
}

func (f funcTool) Name() string { return f.name }

func (f funcTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.fn(ctx, input)
}
