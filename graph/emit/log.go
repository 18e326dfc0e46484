package emit

import (
	"context"
	"log/slog"
)

// LogEmitter writes events as structured log records.
//
// node_error events and run_end events carrying an "error" are logged at
// Error level; everything else at Info. Meta keys become record attributes.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	wf, _ := g.Compile(graph.WithEmitter(emit.NewLogEmitter(logger)))
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a LogEmitter. A nil logger uses slog.Default().
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit logs event.
func (l *LogEmitter) Emit(event Event) {
	level := slog.LevelInfo
	if _, failed := event.Meta["error"]; failed || event.Msg == MsgNodeError {
		level = slog.LevelError
	}

	attrs := make([]slog.Attr, 0, 4+len(event.Meta))
	attrs = append(attrs,
		slog.String("run_id", event.RunID),
		slog.String("workflow", event.Workflow),
		slog.Int("step", event.Step),
	)
	if event.NodeID != "" {
		attrs = append(attrs, slog.String("node", event.NodeID))
	}
	for k, v := range event.Meta {
		attrs = append(attrs, slog.Any(k, v))
	}

	l.logger.LogAttrs(context.Background(), level, event.Msg, attrs...)
}
