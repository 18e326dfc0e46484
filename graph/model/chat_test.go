package model

import (
	"context"
	"errors"
	"testing"
)

func TestSplitSystem(t *testing.T) {
	system, turns := SplitSystem([]Message{
		System("You are a reviewer."),
		User("Review this draft."),
		System("Be brief."),
		Assistant("Looks good."),
	})

	if system != "You are a reviewer.\n\nBe brief." {
		t.Errorf("system = %q", system)
	}
	if len(turns) != 2 || turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Errorf("turns = %+v", turns)
	}
}

func TestUsage_Total(t *testing.T) {
	if got := (Usage{InputTokens: 12, OutputTokens: 30}).Total(); got != 42 {
		t.Errorf("Total() = %d", got)
	}
}

func TestMockChatModel(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted responses repeat the last", func(t *testing.T) {
		m := &MockChatModel{Responses: []ChatOut{{Text: "one"}, {Text: "two"}}}
		var got []string
		for i := 0; i < 3; i++ {
			out, err := m.Chat(ctx, []Message{User("hi")})
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, out.Text)
		}
		if got[0] != "one" || got[1] != "two" || got[2] != "two" {
			t.Errorf("responses = %v", got)
		}
		if m.CallCount() != 3 {
			t.Errorf("CallCount = %d", m.CallCount())
		}

		m.Reset()
		if out, _ := m.Chat(ctx, nil); out.Text != "one" || m.CallCount() != 1 {
			t.Errorf("Reset did not rewind: %q, %d calls", out.Text, m.CallCount())
		}
	})

	t.Run("reply func", func(t *testing.T) {
		m := &MockChatModel{Reply: func(msgs []Message) ChatOut {
			return ChatOut{Text: "echo: " + msgs[len(msgs)-1].Content}
		}}
		out, _ := m.Chat(ctx, []Message{User("ping")})
		if out.Text != "echo: ping" {
			t.Errorf("Text = %q", out.Text)
		}
	})

	t.Run("error and cancellation", func(t *testing.T) {
		boom := errors.New("rate limited")
		m := &MockChatModel{Err: boom}
		if _, err := m.Chat(ctx, nil); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := (&MockChatModel{}).Chat(cancelled, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("calls record a copy", func(t *testing.T) {
		m := &MockChatModel{}
		msgs := []Message{User("original")}
		_, _ = m.Chat(ctx, msgs)
		msgs[0].Content = "changed"
		if m.Calls[0][0].Content != "original" {
			t.Error("recorded call aliases caller slice")
		}
	})
}
