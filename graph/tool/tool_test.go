package tool

import (
	"context"
	"errors"
	"testing"
)

func TestFunc(t *testing.T) {
	classify := Func("classify", func(_ context.Context, in map[string]any) (map[string]any, error) {
		return map[string]any{"kind": "invoice", "file": in["file"]}, nil
	})

	if classify.Name() != "classify" {
		t.Errorf("Name() = %q", classify.Name())
	}

	out, err := classify.Call(context.Background(), map[string]any{"file": "scan.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if out["kind"] != "invoice" || out["file"] != "scan.pdf" {
		t.Errorf("out = %v", out)
	}

	t.Run("cancelled context", func(t *testing.T) {
		called := false
		fn := Func("x", func(context.Context, map[string]any) (map[string]any, error) {
			called = true
			return nil, nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := fn.Call(ctx, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
		if called {
			t.Error("function ran after cancellation")
		}
	})
}

func TestMockTool(t *testing.T) {
	t.Run("responses in order then last repeats", func(t *testing.T) {
		m := &MockTool{ToolName: "ocr", Responses: []map[string]any{{"page": 1}, {"page": 2}}}
		ctx := context.Background()

		for i, want := range []int{1, 2, 2} {
			out, err := m.Call(ctx, map[string]any{"i": i})
			if err != nil {
				t.Fatal(err)
			}
			if out["page"] != want {
				t.Errorf("call %d: page = %v, want %d", i, out["page"], want)
			}
		}
		if m.CallCount() != 3 || m.Calls[2]["i"] != 2 {
			t.Errorf("calls = %v", m.Calls)
		}

		m.Reset()
		if m.CallCount() != 0 {
			t.Error("Reset did not clear calls")
		}
		if out, _ := m.Call(ctx, nil); out["page"] != 1 {
			t.Errorf("Reset did not rewind responses: %v", out)
		}
	})

	t.Run("error is recorded and returned", func(t *testing.T) {
		boom := errors.New("endpoint down")
		m := &MockTool{ToolName: "ocr", Err: boom}
		if _, err := m.Call(context.Background(), nil); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
		if m.CallCount() != 1 {
			t.Errorf("CallCount = %d", m.CallCount())
		}
	})

	t.Run("empty responses", func(t *testing.T) {
		out, err := (&MockTool{}).Call(context.Background(), nil)
		if err != nil || out == nil || len(out) != 0 {
			t.Errorf("out=%v err=%v", out, err)
		}
	})
}
