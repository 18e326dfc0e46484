package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/agentlib/workgraph/graph/emit"
	"github.com/agentlib/workgraph/graph/model"
	"github.com/agentlib/workgraph/graph/model/anthropic"
	"github.com/agentlib/workgraph/graph/model/google"
	"github.com/agentlib/workgraph/graph/model/openai"
	"github.com/agentlib/workgraph/graph/store"
	"github.com/agentlib/workgraph/graph/tool"
)

// newLogger creates a logger writing to w. Unknown levels fall back to info.
func newLogger(levelStr, formatStr string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore opens the configured memory store.
func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemStore(), nil
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			path = "workgraph.db"
		}
		return store.NewSQLiteStore(path)
	case "mysql":
		return store.NewMySQLStore(cfg.DSN)
	case "postgres":
		s, err := store.OpenPGStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.CreateSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// newChatModel returns the configured model, or nil for offline runs. The
// returned close function is never nil.
func newChatModel(ctx context.Context, cfg ModelConfig) (model.ChatModel, func() error, error) {
	noop := func() error { return nil }
	key := ""
	if env := cfg.apiKeyEnv(); env != "" {
		key = os.Getenv(env)
	}

	switch cfg.Provider {
	case "", "none":
		return nil, noop, nil
	case "mock":
		return &model.MockChatModel{Reply: mockReply}, noop, nil
	case "anthropic":
		m, err := anthropic.NewChatModel(key, cfg.Name)
		if err != nil {
			return nil, noop, err
		}
		return m, noop, nil
	case "openai":
		m, err := openai.NewChatModel(key, cfg.Name)
		if err != nil {
			return nil, noop, err
		}
		return m, noop, nil
	case "google":
		m, err := google.NewChatModel(ctx, key, cfg.Name)
		if err != nil {
			return nil, noop, err
		}
		return m, m.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown model provider %q", cfg.Provider)
}

// mockReply answers researcher prompts with key points and writer prompts
// with a short document, so the supervisor pipeline runs without network.
func mockReply(messages []model.Message) model.ChatOut {
	last := messages[len(messages)-1].Content
	if strings.HasPrefix(last, "List the key points") {
		return model.ChatOut{Text: "- scope\n- risks\n- next steps"}
	}
	return model.ChatOut{Text: "# Draft\n\n" + last + "\n\n## Sources\n\n- offline mock\n"}
}

// newExtractor returns the license extraction tool for the intake pipeline.
func newExtractor(cfg ExtractorConfig) tool.Tool {
	if cfg.URL == "" {
		return &tool.MockTool{ToolName: "sample_ocr", Responses: []map[string]any{{
			"name":           "Zhang San",
			"shop_name":      "Example Mart",
			"address":        "123 Example St",
			"business_scope": "general merchandise",
		}}}
	}

	client := tool.NewHTTPTool()
	return tool.Func("ocr_http", func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return client.Call(ctx, map[string]any{"url": cfg.URL, "method": "POST", "json": input})
	})
}

// newEmitter fans events out to the log, an in-memory history used for
// the event listing, and optionally OpenTelemetry spans.
func newEmitter(logger *slog.Logger, tp *sdktrace.TracerProvider) (emit.Emitter, *emit.BufferedEmitter) {
	history := emit.NewBufferedEmitter()
	emitters := []emit.Emitter{emit.NewLogEmitter(logger), history}
	if tp != nil {
		emitters = append(emitters, emit.NewOTelEmitter(tp.Tracer("github.com/agentlib/workgraph")))
	}
	return emit.NewMultiEmitter(emitters...), history
}

// newTracerProvider records spans and logs each finished one at debug level.
func newTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(&logSpanProcessor{logger: logger}),
	)
}

type logSpanProcessor struct {
	logger *slog.Logger
}

func (p *logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	p.logger.Debug("span",
		"name", s.Name(),
		"trace_id", s.SpanContext().TraceID().String(),
		"status", s.Status().Code.String(),
		"attributes", len(s.Attributes()),
	)
}

func (p *logSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *logSpanProcessor) ForceFlush(context.Context) error { return nil }

// metricsHandler exposes reg in the Prometheus text format.
func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
