// Package graph provides the workflow graph execution engine for workgraph.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped) by graph construction and compilation.
var (
	// ErrEmptyName indicates a node, edge endpoint or entry point name was empty.
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrNilNode indicates AddNode was called with a nil node.
	ErrNilNode = errors.New("node cannot be nil")

	// ErrDuplicateNode indicates a node name was registered twice.
	ErrDuplicateNode = errors.New("duplicate node name")

	// ErrDuplicateEdge indicates a second static edge from the same source.
	ErrDuplicateEdge = errors.New("static edge already defined for source")

	// ErrUnknownNode indicates a reference to a node that is not registered.
	ErrUnknownNode = errors.New("node not registered")

	// ErrNoEntryPoint indicates Compile was called before SetEntryPoint.
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrInvalidRouter indicates a nil router, nil selector or empty branch map.
	ErrInvalidRouter = errors.New("invalid conditional edge")
)

// Sentinel errors returned (wrapped) by Invoke.
var (
	// ErrMaxStepsExceeded indicates the run hit its step budget before finishing.
	// This prevents runaway cycles between routers and their targets.
	ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

	// ErrNoRoute indicates no conditional edge on a node produced a decision.
	ErrNoRoute = errors.New("no conditional edge selected a destination")

	// ErrAmbiguousRoute indicates more than one conditional edge produced a decision.
	ErrAmbiguousRoute = errors.New("more than one conditional edge selected a destination")

	// ErrUnknownBranch indicates a selector returned a key missing from its branch map.
	ErrUnknownBranch = errors.New("selector returned unknown branch")

	// ErrRouterPanic indicates a router or selector panicked.
	ErrRouterPanic = errors.New("conditional edge panicked")

	// ErrNodeTimeout indicates a node ran past the workflow's NodeTimeout.
	ErrNodeTimeout = errors.New("node exceeded its timeout")
)

// EngineError represents an error from graph construction, compilation or
// the executor loop itself (as opposed to a failure inside a node).
type EngineError struct {
	// Message is the human-readable description.
	Message string

	// Code is a machine-readable error code, e.g. "DUPLICATE_NODE".
	Code string

	// Err is the sentinel this error wraps, if any.
	Err error
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the wrapped sentinel for errors.Is support.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NodeError represents a fatal failure returned by a node's Execute.
type NodeError struct {
	// Message is the human-readable error description.
	Message string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the error returned by the node.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause error for error wrapping support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}

// PanicError captures a panic raised inside a node's Execute.
type PanicError struct {
	// NodeID is the node that panicked.
	NodeID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// RouteError describes a failure to resolve the next hop after a node ran.
type RouteError struct {
	// From is the node whose outgoing transition failed.
	From string

	// Hop is the value the router or selector produced, if any.
	Hop string

	// Err is the underlying sentinel.
	Err error
}

func (e *RouteError) Error() string {
	if e.Hop != "" {
		return fmt.Sprintf("route from %s to %q: %v", e.From, e.Hop, e.Err)
	}
	return fmt.Sprintf("route from %s: %v", e.From, e.Err)
}

// Unwrap returns the underlying sentinel for errors.Is support.
func (e *RouteError) Unwrap() error {
	return e.Err
}
