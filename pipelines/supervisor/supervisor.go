// Package supervisor builds a document pipeline in which a supervisor node
// hands work to research, write and review workers and loops back to
// itself after each one. A failed review sends the draft back to the
// writer until the revision limit is reached.
package supervisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentlib/workgraph/graph"
	"github.com/agentlib/workgraph/graph/model"
)

// Node names.
const (
	NodeSupervisor = "supervisor"
	NodeResearch   = "research"
	NodeWrite      = "write"
	NodeReview     = "review"
)

// Branch keys chosen by the supervisor.
const (
	BranchResearch = "research"
	BranchWrite    = "write"
	BranchReview   = "review"
	BranchEnd      = "end"
)

// Defaults applied by Build.
const (
	DefaultMaxRevisions   = 2
	DefaultMinDraftLength = 100
	DefaultMaxSteps       = 25
)

// ErrNoTask is returned by the supervisor when the state has no task.
var ErrNoTask = errors.New("supervisor: task is required")

// Research is what the researcher found.
type Research struct {
	Topic     string   `json:"topic"`
	KeyPoints []string `json:"key_points"`
	Sources   []string `json:"sources"`
}

// DocState is the state threaded through the pipeline.
type DocState struct {
	Task     string    `json:"task"`
	Research *Research `json:"research,omitempty"`
	Draft    string    `json:"draft"`

	Reviewed     bool     `json:"reviewed"`
	ReviewPassed bool     `json:"review_passed"`
	ReviewIssues []string `json:"review_issues,omitempty"`
	Revisions    int      `json:"revisions"`

	// Decision is the branch key the supervisor chose last.
	Decision string `json:"decision"`

	Usage    model.Usage `json:"usage"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Config configures Build.
type Config struct {
	// Model backs the researcher and writer. Without one they produce
	// deterministic output.
	Model model.ChatModel

	// MaxRevisions bounds how often a rejected draft is rewritten.
	MaxRevisions int

	// MinDraftLength is the shortest draft the reviewer accepts.
	MinDraftLength int

	// MaxSteps is the step budget of each run.
	MaxSteps int

	// Options are passed to Compile after the step budget.
	Options []graph.Option
}

func (c *Config) defaults() {
	if c.MaxRevisions <= 0 {
		c.MaxRevisions = DefaultMaxRevisions
	}
	if c.MinDraftLength <= 0 {
		c.MinDraftLength = DefaultMinDraftLength
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = DefaultMaxSteps
	}
}

// Build assembles and compiles the pipeline.
func Build(cfg Config) (*graph.Workflow[DocState], error) {
	cfg.defaults()

	g := graph.New[DocState]("supervisor")

	nodes := []struct {
		name string
		desc string
		fn   graph.NodeFunc[DocState]
	}{
		{NodeSupervisor, "coordinates the document workers", supervise(cfg)},
		{NodeResearch, "collects key points and sources", research(cfg.Model)},
		{NodeWrite, "writes the draft from research", write(cfg.Model)},
		{NodeReview, "checks the draft", review(cfg.MinDraftLength)},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.name, graph.Describe[DocState](n.desc, n.fn)); err != nil {
			return nil, err
		}
	}

	if err := g.SetEntryPoint(NodeSupervisor); err != nil {
		return nil, err
	}
	for _, worker := range []string{NodeResearch, NodeWrite, NodeReview} {
		if err := g.AddEdge(worker, NodeSupervisor); err != nil {
			return nil, err
		}
	}

	err := g.AddConditionalEdges(NodeSupervisor,
		func(s DocState) string { return s.Decision },
		map[string]graph.Next{
			BranchResearch: graph.Goto(NodeResearch),
			BranchWrite:    graph.Goto(NodeWrite),
			BranchReview:   graph.Goto(NodeReview),
			BranchEnd:      graph.End(),
		})
	if err != nil {
		return nil, err
	}

	opts := append([]graph.Option{graph.WithMaxSteps(cfg.MaxSteps)}, cfg.Options...)
	return g.Compile(opts...)
}

// Decide returns the branch the supervisor takes for s.
func Decide(s DocState, maxRevisions int) string {
	switch {
	case s.Research == nil:
		return BranchResearch
	case s.Draft == "":
		return BranchWrite
	case !s.Reviewed:
		return BranchReview
	case !s.ReviewPassed && s.Revisions < maxRevisions:
		return BranchWrite
	default:
		return BranchEnd
	}
}

func supervise(cfg Config) graph.NodeFunc[DocState] {
	return func(ctx context.Context, s DocState) (DocState, error) {
		if s.Task == "" {
			return s, ErrNoTask
		}
		s.Decision = Decide(s, cfg.MaxRevisions)
		if s.Decision == BranchEnd && !s.ReviewPassed {
			s.Warnings = append(s.Warnings,
				fmt.Sprintf("draft still failing review after %d revisions", s.Revisions))
		}
		return s, nil
	}
}
