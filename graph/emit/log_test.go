package emit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLogEmitter(t *testing.T) {
	t.Run("writes structured record", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(slog.New(slog.NewJSONHandler(&buf, nil)))

		emitter.Emit(Event{
			RunID:    "run-001",
			Workflow: "supervisor",
			Step:     3,
			NodeID:   "review",
			Msg:      MsgNodeEnd,
			Meta:     map[string]any{"next": "END"},
		})

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("output is not JSON: %v: %s", err, buf.String())
		}
		checks := map[string]any{
			"msg":      MsgNodeEnd,
			"level":    "INFO",
			"run_id":   "run-001",
			"workflow": "supervisor",
			"step":     float64(3),
			"node":     "review",
			"next":     "END",
		}
		for k, want := range checks {
			if rec[k] != want {
				t.Errorf("%s = %v, want %v", k, rec[k], want)
			}
		}
	})

	t.Run("errors log at error level", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(slog.New(slog.NewTextHandler(&buf, nil)))

		emitter.Emit(Event{RunID: "r", NodeID: "extract", Msg: MsgNodeError, Meta: map[string]any{"error": "boom"}})
		emitter.Emit(Event{RunID: "r", Msg: MsgRunEnd, Meta: map[string]any{"error": "boom", "status": "failed"}})

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
		}
		for _, line := range lines {
			if !strings.Contains(line, "level=ERROR") {
				t.Errorf("expected ERROR level: %s", line)
			}
		}
	})

	t.Run("run events omit node attribute", func(t *testing.T) {
		var buf bytes.Buffer
		emitter := NewLogEmitter(slog.New(slog.NewTextHandler(&buf, nil)))

		emitter.Emit(Event{RunID: "r", Msg: MsgRunStart})

		if strings.Contains(buf.String(), "node=") {
			t.Errorf("unexpected node attribute: %s", buf.String())
		}
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		if NewLogEmitter(nil).logger == nil {
			t.Fatal("expected default logger")
		}
	})
}
