package graph

import (
	"context"
	"errors"
	"testing"
)

func noop() Node[trace] {
	return NodeFunc[trace](func(_ context.Context, s trace) (trace, error) { return s, nil })
}

func TestGraph_AddNode(t *testing.T) {
	tests := []struct {
		name     string
		nodeName string
		node     Node[trace]
		wantErr  error
		wantCode string
	}{
		{"valid", "organize", noop(), nil, ""},
		{"empty name", "", noop(), ErrEmptyName, "EMPTY_NAME"},
		{"nil node", "extract", nil, ErrNilNode, "NIL_NODE"},
		{"duplicate", "existing", noop(), ErrDuplicateNode, "DUPLICATE_NODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[trace]("test")
			mustAdd(t, g, "existing", noop())

			err := g.AddNode(tt.nodeName, tt.node)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var engErr *EngineError
			if !errors.As(err, &engErr) || engErr.Code != tt.wantCode {
				t.Errorf("expected EngineError code %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestGraph_AddEdge(t *testing.T) {
	t.Run("forward reference to target is allowed", func(t *testing.T) {
		g := New[trace]("test")
		mustAdd(t, g, "A", noop())
		if err := g.AddEdge("A", "later"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unregistered source", func(t *testing.T) {
		g := New[trace]("test")
		if err := g.AddEdge("ghost", "A"); !errors.Is(err, ErrUnknownNode) {
			t.Errorf("expected ErrUnknownNode, got %v", err)
		}
	})

	t.Run("empty endpoints", func(t *testing.T) {
		g := New[trace]("test")
		mustAdd(t, g, "A", noop())
		if err := g.AddEdge("A", ""); !errors.Is(err, ErrEmptyName) {
			t.Errorf("empty target: expected ErrEmptyName, got %v", err)
		}
		if err := g.AddEdge("", "A"); !errors.Is(err, ErrEmptyName) {
			t.Errorf("empty source: expected ErrEmptyName, got %v", err)
		}
	})

	t.Run("second static edge from same source", func(t *testing.T) {
		g := New[trace]("test")
		mustAdd(t, g, "A", noop())
		mustAdd(t, g, "B", noop())
		if err := g.AddEdge("A", "B"); err != nil {
			t.Fatal(err)
		}
		if err := g.AddFinish("A"); !errors.Is(err, ErrDuplicateEdge) {
			t.Errorf("expected ErrDuplicateEdge, got %v", err)
		}
	})
}

func TestGraph_AddConditionalEdges(t *testing.T) {
	selector := func(trace) string { return "x" }

	tests := []struct {
		name    string
		source  string
		router  Router[trace]
		sel     Selector[trace]
		branch  map[string]Next
		wantErr error
	}{
		{name: "nil router", source: "A", wantErr: ErrInvalidRouter},
		{name: "nil selector", source: "A", sel: nil, branch: map[string]Next{"x": End()}, wantErr: ErrInvalidRouter},
		{name: "empty branch map", source: "A", sel: selector, branch: map[string]Next{}, wantErr: ErrInvalidRouter},
		{name: "zero branch target", source: "A", sel: selector, branch: map[string]Next{"x": {}}, wantErr: ErrInvalidRouter},
		{name: "unregistered source", source: "ghost", sel: selector, branch: map[string]Next{"x": End()}, wantErr: ErrUnknownNode},
		{name: "valid branch map", source: "A", sel: selector, branch: map[string]Next{"x": End()}},
		{name: "valid router", source: "A", router: func(trace) Next { return End() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New[trace]("test")
			mustAdd(t, g, "A", noop())

			var err error
			if tt.router != nil || (tt.sel == nil && tt.branch == nil) {
				err = g.AddConditionalEdge(tt.source, tt.router)
			} else {
				err = g.AddConditionalEdges(tt.source, tt.sel, tt.branch)
			}

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGraph_BranchMapIsCopied(t *testing.T) {
	g := New[trace]("test")
	mustAdd(t, g, "A", noop())
	_ = g.SetEntryPoint("A")

	branches := map[string]Next{"x": End()}
	if err := g.AddConditionalEdges("A", func(trace) string { return "x" }, branches); err != nil {
		t.Fatal(err)
	}
	branches["x"] = Goto("ghost")

	if _, err := g.Compile(); err != nil {
		t.Errorf("caller's map mutation leaked into the graph: %v", err)
	}
}

func TestGraph_SetEntryPoint(t *testing.T) {
	g := New[trace]("test")
	if err := g.SetEntryPoint(""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	// Forward reference: registration is checked at compile.
	if err := g.SetEntryPoint("later"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	mustAdd(t, g, "first", noop())
	mustAdd(t, g, "later", noop())
	_ = g.SetEntryPoint("first")

	wf := mustCompile(t, g)
	if wf.EntryPoint() != "first" {
		t.Errorf("EntryPoint = %q, want the last one set", wf.EntryPoint())
	}
}
