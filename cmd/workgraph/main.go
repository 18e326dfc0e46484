// Command workgraph runs the bundled workflow pipelines.
//
// Usage:
//
//	workgraph [flags] supervisor <task words...>
//	workgraph [flags] intake <uploaded files...>
//	workgraph [flags] memories [tag]
//
// The supervisor pipeline researches, writes and reviews a document. The
// intake pipeline organizes uploaded registration files, extracts the
// license fields and stores a summary in the memory store, which the
// memories command lists.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/agentlib/workgraph/graph"
	"github.com/agentlib/workgraph/graph/emit"
	"github.com/agentlib/workgraph/graph/model"
	"github.com/agentlib/workgraph/graph/store"
	"github.com/agentlib/workgraph/pipelines/intake"
	"github.com/agentlib/workgraph/pipelines/supervisor"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitRuntime = 3
)

// Args represents parsed command-line arguments.
type Args struct {
	Command    string
	Inputs     []string
	ConfigFile string
	Format     string // text or json
	LogLevel   string
	MaxSteps   int
	Mermaid    bool
	Events     bool
	Err        error
}

// parseArgs parses flags followed by the command and its inputs.
func parseArgs(osArgs []string) Args {
	fs := flag.NewFlagSet("workgraph", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configFile := fs.String("config", "", "path to config YAML file")
	format := fs.String("format", "text", "output format (text or json)")
	logLevel := fs.String("log-level", "", "override the configured log level")
	maxSteps := fs.Int("max-steps", 0, "override the configured step budget")
	mermaid := fs.Bool("mermaid", false, "print the workflow as a Mermaid flowchart and exit")
	events := fs.Bool("events", false, "print the run's events after the result")

	if err := fs.Parse(osArgs); err != nil {
		return Args{Err: fmt.Errorf("flag parsing error: %w", err)}
	}
	if fs.NArg() == 0 {
		return Args{Err: errors.New("required argument missing: command")}
	}
	if *format != "text" && *format != "json" {
		return Args{Err: fmt.Errorf("unsupported format %q", *format)}
	}

	return Args{
		Command:    fs.Arg(0),
		Inputs:     fs.Args()[1:],
		ConfigFile: *configFile,
		Format:     *format,
		LogLevel:   *logLevel,
		MaxSteps:   *maxSteps,
		Mermaid:    *mermaid,
		Events:     *events,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	args := parseArgs(argv)
	if args.Err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", args.Err)
		return exitUsage
	}

	cfg, err := loadConfig(args.ConfigFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if args.MaxSteps > 0 {
		cfg.Engine.MaxSteps = args.MaxSteps
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format, stderr)

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Error("open store", "driver", cfg.Store.Driver, "error", err)
		return exitRuntime
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	if args.Command == "memories" {
		if err := listMemories(ctx, st, args, stdout); err != nil {
			logger.Error("list memories", "error", err)
			return exitRuntime
		}
		return exitOK
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp = newTracerProvider(logger)
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}
	emitter, history := newEmitter(logger, tp)

	opts := []graph.Option{
		graph.WithEmitter(emitter),
		graph.WithLogger(logger),
		graph.WithNodeTimeout(cfg.Engine.NodeTimeout),
	}
	// Zero keeps each pipeline's own budget.
	if cfg.Engine.MaxSteps > 0 {
		opts = append(opts, graph.WithMaxSteps(cfg.Engine.MaxSteps))
	}
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, graph.WithMetrics(graph.NewPrometheusMetrics(reg)))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsHandler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		defer func() { _ = srv.Shutdown(context.Background()) }()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}

	switch args.Command {
	case "supervisor":
		chat, closeModel, err := newChatModel(ctx, cfg.Model)
		if err != nil {
			logger.Error("create chat model", "provider", cfg.Model.Provider, "error", err)
			return exitRuntime
		}
		defer func() { _ = closeModel() }()

		var costs *model.CostTracker
		if chat != nil {
			costs = model.NewCostTracker()
			chat = model.Metered(chat, modelName(chat, cfg.Model), costs, model.WithEvents(emitter))
		}

		wf, err := supervisor.Build(supervisor.Config{
			Model:          chat,
			MaxRevisions:   cfg.Supervisor.MaxRevisions,
			MinDraftLength: cfg.Supervisor.MinDraftLength,
			MaxSteps:       cfg.Engine.MaxSteps,
			Options:        opts,
		})
		if err != nil {
			logger.Error("build supervisor pipeline", "error", err)
			return exitRuntime
		}
		code := execute(ctx, wf, supervisor.DocState{Task: strings.Join(args.Inputs, " ")}, args, history, stdout, logger)
		if costs != nil && !args.Mermaid {
			logger.Info("model usage", "provider", cfg.Model.Provider, "summary", costs.String(), "cost_usd", costs.Total())
		}
		return code

	case "intake":
		wf, err := intake.Build(intake.Config{
			Extractor: newExtractor(cfg.Extractor),
			Store:     st,
			Fields:    cfg.Extractor.Fields,
			Options:   opts,
		})
		if err != nil {
			logger.Error("build intake pipeline", "error", err)
			return exitRuntime
		}
		return execute(ctx, wf, intake.NewState(args.Inputs), args, history, stdout, logger)
	}

	fmt.Fprintf(stderr, "Error: unknown command %q\n", args.Command)
	return exitUsage
}

// modelName is the name calls are priced under.
func modelName(m model.ChatModel, cfg ModelConfig) string {
	if named, ok := m.(interface{ Name() string }); ok {
		return named.Name()
	}
	if cfg.Name != "" {
		return cfg.Name
	}
	return cfg.Provider
}

// execute invokes wf, or prints its diagram, and writes the result.
func execute[S any](ctx context.Context, wf *graph.Workflow[S], initial S, args Args, history *emit.BufferedEmitter, w io.Writer, logger *slog.Logger) int {
	if args.Mermaid {
		fmt.Fprint(w, wf.Mermaid())
		return exitOK
	}

	res, err := wf.Invoke(ctx, initial)
	if err := writeResult(w, args.Format, res); err != nil {
		logger.Error("write result", "error", err)
		return exitRuntime
	}
	if args.Events {
		writeEvents(w, history.GetHistory(res.RunID))
	}
	if err != nil {
		logger.Error("run failed", "workflow", res.Workflow, "run_id", res.RunID, "failed_node", res.FailedNode, "error", err)
		return exitFailed
	}
	logger.Info("run completed", "workflow", res.Workflow, "run_id", res.RunID, "nodes_executed", res.NodesExecuted)
	return exitOK
}

type resultSummary struct {
	RunID         string   `json:"run_id"`
	Workflow      string   `json:"workflow"`
	Status        string   `json:"status"`
	NodesExecuted int      `json:"nodes_executed"`
	Path          []string `json:"path"`
	DurationMS    int64    `json:"duration_ms"`
	FailedNode    string   `json:"failed_node,omitempty"`
	Error         string   `json:"error,omitempty"`
	State         any      `json:"state"`
}

func writeResult[S any](w io.Writer, format string, res graph.Result[S]) error {
	summary := resultSummary{
		RunID:         res.RunID,
		Workflow:      res.Workflow,
		Status:        res.Status.String(),
		NodesExecuted: res.NodesExecuted,
		Path:          res.Visited(),
		DurationMS:    res.Duration().Milliseconds(),
		FailedNode:    res.FailedNode,
		State:         res.State,
	}
	if res.Err != nil {
		summary.Error = res.Err.Error()
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Fprintf(w, "Workflow: %s (run %s)\n", summary.Workflow, summary.RunID)
	fmt.Fprintf(w, "Status:   %s after %d node(s) in %dms\n", summary.Status, summary.NodesExecuted, summary.DurationMS)
	fmt.Fprintf(w, "Path:     %s\n", strings.Join(summary.Path, " -> "))
	if summary.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", summary.Error)
	}

	state, err := json.MarshalIndent(summary.State, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintf(w, "State:\n%s\n", state)
	return nil
}

func writeEvents(w io.Writer, events []emit.Event) {
	fmt.Fprintln(w, "Events:")
	for _, e := range events {
		node := e.NodeID
		if node == "" {
			node = "-"
		}
		fmt.Fprintf(w, "  %3d %-10s %-12s %v\n", e.Step, node, e.Msg, e.Meta)
	}
}

func listMemories(ctx context.Context, st store.Store, args Args, w io.Writer) error {
	var (
		recs []store.Record
		err  error
	)
	if len(args.Inputs) > 0 {
		recs, err = st.FindByTag(ctx, args.Inputs[0])
	} else {
		recs, err = st.List(ctx, 20)
	}
	if err != nil {
		return err
	}

	if args.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %s  %s\n    %s\n", r.CreatedAt.Format(time.RFC3339), r.ID, r.Topic, r.Summary)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "no memories found")
	}
	return nil
}
