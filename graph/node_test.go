package graph

import (
	"context"
	"testing"
)

type ctxKey string

func TestNodeFunc(t *testing.T) {
	node := NodeFunc[*State](func(ctx context.Context, s *State) (*State, error) {
		s.Set("tenant", ctx.Value(ctxKey("tenant")))
		return s, nil
	})

	ctx := context.WithValue(context.Background(), ctxKey("tenant"), "acme")
	out, err := node.Execute(ctx, NewState(nil))
	if err != nil {
		t.Fatal(err)
	}
	if out.GetString("tenant") != "acme" {
		t.Errorf("node did not receive context value: %v", out.Data)
	}
}

func TestDescribe(t *testing.T) {
	t.Run("wrapped node keeps behaviour", func(t *testing.T) {
		node := Describe("organize uploads", visit("organize"))
		out, err := node.Execute(context.Background(), trace{})
		if err != nil || len(out.Visited) != 1 {
			t.Fatalf("out=%v err=%v", out, err)
		}
		if got := describe(node); got != "organize uploads" {
			t.Errorf("describe() = %q", got)
		}
	})

	t.Run("plain node has no description", func(t *testing.T) {
		if got := describe(visit("x")); got != "" {
			t.Errorf("describe() = %q, want empty", got)
		}
	})
}
