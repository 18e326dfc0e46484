package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/agentlib/workgraph/graph"
	"github.com/agentlib/workgraph/graph/emit"
	"github.com/agentlib/workgraph/graph/model"
)

func mustBuild(t *testing.T, cfg Config) *graph.Workflow[DocState] {
	t.Helper()
	wf, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return wf
}

func TestPipeline_Offline(t *testing.T) {
	wf := mustBuild(t, Config{})

	res, err := wf.Invoke(context.Background(), DocState{Task: "release notes"})
	if err != nil {
		t.Fatal(err)
	}

	want := "supervisor,research,supervisor,write,supervisor,review,supervisor"
	if got := strings.Join(res.Visited(), ","); got != want {
		t.Errorf("path = %s\nwant   %s", got, want)
	}
	if res.NodesExecuted != 7 || res.Status != graph.StatusCompleted {
		t.Errorf("nodes=%d status=%s", res.NodesExecuted, res.Status)
	}

	s := res.State
	if !s.ReviewPassed || s.Revisions != 0 || s.Decision != BranchEnd {
		t.Errorf("state = %+v", s)
	}
	if !strings.HasPrefix(s.Draft, "# release notes") || !strings.Contains(s.Draft, sourcesHeading) {
		t.Errorf("draft = %q", s.Draft)
	}
	if len(s.Warnings) != 0 {
		t.Errorf("warnings = %v", s.Warnings)
	}
}

func TestPipeline_RevisionLoop(t *testing.T) {
	wf := mustBuild(t, Config{MaxRevisions: 2, MinDraftLength: 1 << 20})

	res, err := wf.Invoke(context.Background(), DocState{Task: "design doc"})
	if err != nil {
		t.Fatal(err)
	}

	counts := res.Counts()
	if counts[NodeWrite] != 3 || counts[NodeReview] != 3 {
		t.Errorf("counts = %v", counts)
	}
	if res.NodesExecuted != 15 {
		t.Errorf("NodesExecuted = %d, want 15", res.NodesExecuted)
	}

	s := res.State
	if s.ReviewPassed || s.Revisions != 2 {
		t.Errorf("passed=%v revisions=%d", s.ReviewPassed, s.Revisions)
	}
	if len(s.Warnings) != 1 || !strings.Contains(s.Warnings[0], "2 revisions") {
		t.Errorf("warnings = %v", s.Warnings)
	}
	if !strings.Contains(s.Draft, "addressed: draft too short") {
		t.Errorf("revised draft does not address review issues:\n%s", s.Draft)
	}
}

func TestPipeline_StepBudget(t *testing.T) {
	wf := mustBuild(t, Config{MaxSteps: 3})

	res, err := wf.Invoke(context.Background(), DocState{Task: "x"})
	if !errors.Is(err, graph.ErrMaxStepsExceeded) {
		t.Fatalf("expected ErrMaxStepsExceeded, got %v", err)
	}
	if res.NodesExecuted != 3 || res.Status != graph.StatusFailed {
		t.Errorf("nodes=%d status=%s", res.NodesExecuted, res.Status)
	}
}

func TestPipeline_MissingTask(t *testing.T) {
	wf := mustBuild(t, Config{})

	res, err := wf.Invoke(context.Background(), DocState{})
	if !errors.Is(err, ErrNoTask) {
		t.Fatalf("expected ErrNoTask, got %v", err)
	}
	var nodeErr *graph.NodeError
	if !errors.As(err, &nodeErr) || nodeErr.NodeID != NodeSupervisor {
		t.Errorf("expected NodeError from supervisor, got %v", err)
	}
	if res.FailedNode != NodeSupervisor || res.NodesExecuted != 0 {
		t.Errorf("failed=%q nodes=%d", res.FailedNode, res.NodesExecuted)
	}
}

func TestPipeline_WithModel(t *testing.T) {
	doc := "# Caching\n\n" + strings.Repeat("Caches trade memory for latency. ", 5) + "\n\n" + sourcesHeading + "\n\n- RFC 9111\n"
	m := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: "- eviction policies\n- invalidation\n\n* warmup", Usage: model.Usage{InputTokens: 10, OutputTokens: 8}},
		{Text: doc, Usage: model.Usage{InputTokens: 30, OutputTokens: 60}},
	}}
	events := emit.NewBufferedEmitter()
	wf := mustBuild(t, Config{Model: m, Options: []graph.Option{graph.WithEmitter(events)}})

	res, err := wf.Invoke(context.Background(), DocState{Task: "caching"}, graph.WithRunID("run-1"))
	if err != nil {
		t.Fatal(err)
	}

	s := res.State
	if got := strings.Join(s.Research.KeyPoints, "|"); got != "eviction policies|invalidation|warmup" {
		t.Errorf("key points = %q", got)
	}
	if s.Draft != doc || !s.ReviewPassed {
		t.Errorf("draft=%q passed=%v", s.Draft, s.ReviewPassed)
	}
	if s.Usage.InputTokens != 40 || s.Usage.OutputTokens != 68 {
		t.Errorf("usage = %+v", s.Usage)
	}
	if m.CallCount() != 2 {
		t.Fatalf("model calls = %d", m.CallCount())
	}
	if prompt := m.Calls[1][1].Content; !strings.Contains(prompt, "- invalidation") {
		t.Errorf("writer prompt misses research: %q", prompt)
	}

	history := events.GetHistory("run-1")
	if len(history) == 0 || history[len(history)-1].Msg != emit.MsgRunEnd {
		t.Errorf("events = %v", history)
	}
}

func TestPipeline_ModelError(t *testing.T) {
	boom := errors.New("model unavailable")
	wf := mustBuild(t, Config{Model: &model.MockChatModel{Err: boom}})

	res, err := wf.Invoke(context.Background(), DocState{Task: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected model error, got %v", err)
	}
	if res.FailedNode != NodeResearch {
		t.Errorf("FailedNode = %q", res.FailedNode)
	}
	if res.State.Research != nil {
		t.Error("failed node's partial state leaked into the result")
	}
}

func TestDecide(t *testing.T) {
	r := &Research{Topic: "t"}
	tests := []struct {
		name  string
		state DocState
		want  string
	}{
		{"fresh", DocState{Task: "t"}, BranchResearch},
		{"researched", DocState{Research: r}, BranchWrite},
		{"drafted", DocState{Research: r, Draft: "d"}, BranchReview},
		{"passed", DocState{Research: r, Draft: "d", Reviewed: true, ReviewPassed: true}, BranchEnd},
		{"failed with revisions left", DocState{Research: r, Draft: "d", Reviewed: true, Revisions: 1}, BranchWrite},
		{"failed out of revisions", DocState{Research: r, Draft: "d", Reviewed: true, Revisions: 2}, BranchEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.state, 2); got != tt.want {
				t.Errorf("Decide = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMermaid(t *testing.T) {
	out := mustBuild(t, Config{}).Mermaid()
	for _, line := range []string{
		"    __start__ --> supervisor",
		"    supervisor -.->|end| __end__",
		"    supervisor -.->|research| research",
		"    write --> supervisor",
		`    review["review<br/>checks the draft"]`,
	} {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("missing %q in:\n%s", line, out)
		}
	}
}
