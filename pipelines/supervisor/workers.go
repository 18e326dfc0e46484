package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentlib/workgraph/graph/model"
)

const sourcesHeading = "## Sources"

var errNoResearch = errors.New("write: no research to write from")

func research(m model.ChatModel) func(context.Context, DocState) (DocState, error) {
	return func(ctx context.Context, s DocState) (DocState, error) {
		r := &Research{Topic: s.Task}

		if m == nil {
			for i := 1; i <= 3; i++ {
				r.KeyPoints = append(r.KeyPoints, fmt.Sprintf("Key point %d on %s", i, s.Task))
			}
			r.Sources = []string{"Source A", "Source B", "Source C"}
			s.Research = r
			return s, nil
		}

		out, err := m.Chat(ctx, []model.Message{
			model.System("You are a researcher. Reply with one key point per line, no preamble."),
			model.User("List the key points for a document on: " + s.Task),
		})
		if err != nil {
			return s, fmt.Errorf("research: %w", err)
		}
		r.KeyPoints = bulletLines(out.Text)
		if len(r.KeyPoints) == 0 {
			s.Warnings = append(s.Warnings, "researcher returned no key points")
		}
		s.Usage = addUsage(s.Usage, out.Usage)
		s.Research = r
		return s, nil
	}
}

func write(m model.ChatModel) func(context.Context, DocState) (DocState, error) {
	return func(ctx context.Context, s DocState) (DocState, error) {
		if s.Research == nil {
			return s, errNoResearch
		}
		if s.Draft != "" {
			s.Revisions++
		}

		var draft string
		if m == nil {
			draft = render(s.Research, s.ReviewIssues)
		} else {
			prompt := "Write a short markdown document on " + s.Research.Topic +
				" covering:\n- " + strings.Join(s.Research.KeyPoints, "\n- ")
			if len(s.ReviewIssues) > 0 {
				prompt += "\n\nThe previous draft was rejected for:\n- " + strings.Join(s.ReviewIssues, "\n- ")
			}
			out, err := m.Chat(ctx, []model.Message{
				model.System("You are a technical writer. End every document with a \"" + sourcesHeading + "\" section."),
				model.User(prompt),
			})
			if err != nil {
				return s, fmt.Errorf("write: %w", err)
			}
			s.Usage = addUsage(s.Usage, out.Usage)
			draft = out.Text
		}

		s.Draft = draft
		s.Reviewed = false
		s.ReviewPassed = false
		return s, nil
	}
}

// render produces the offline draft.
func render(r *Research, issues []string) string {
	var b strings.Builder
	b.WriteString("# " + r.Topic + "\n\n")
	b.WriteString("## Overview\n\nThis document discusses " + r.Topic + ".\n\n")
	b.WriteString("## Key points\n\n")
	for _, p := range r.KeyPoints {
		b.WriteString("- " + p + "\n")
	}
	if len(issues) > 0 {
		b.WriteString("\n## Revision notes\n\n")
		for _, issue := range issues {
			b.WriteString("- addressed: " + issue + "\n")
		}
	}
	b.WriteString("\n" + sourcesHeading + "\n\n")
	if len(r.Sources) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, src := range r.Sources {
		b.WriteString("- " + src + "\n")
	}
	return b.String()
}

func review(minLength int) func(context.Context, DocState) (DocState, error) {
	return func(_ context.Context, s DocState) (DocState, error) {
		var issues []string
		if len(s.Draft) < minLength {
			issues = append(issues, fmt.Sprintf("draft too short (%d < %d characters)", len(s.Draft), minLength))
		}
		if !strings.Contains(s.Draft, sourcesHeading) {
			issues = append(issues, "missing sources section")
		}

		s.Reviewed = true
		s.ReviewPassed = len(issues) == 0
		s.ReviewIssues = issues
		return s, nil
	}
}

// bulletLines splits model output into trimmed lines without list markers.
func bulletLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func addUsage(a, b model.Usage) model.Usage {
	return model.Usage{
		InputTokens:  a.InputTokens + b.InputTokens,
		OutputTokens: a.OutputTokens + b.OutputTokens,
	}
}
