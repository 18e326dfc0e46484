// Package model defines the chat model collaborator used by LLM-backed
// workflow nodes. Provider adapters live in the anthropic, openai and google
// subpackages; MockChatModel serves tests and offline runs.
package model

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingAPIKey is returned by adapters constructed without credentials.
var ErrMissingAPIKey = errors.New("model: API key is required")

// ErrNoMessages is returned when Chat is called without a user or assistant turn.
var ErrNoMessages = errors.New("model: no conversation messages")

// ChatModel is a conversational language model.
//
// Implementations must be safe for concurrent use and must honor ctx
// cancellation, since nodes pass their run context straight through.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is one turn of a conversation.
type Message struct {
	Role    string
	Content string
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ChatOut is a model reply.
type ChatOut struct {
	Text  string
	Usage Usage
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// SplitSystem separates system messages, joined with blank lines, from the
// conversation turns. Providers that take the system prompt out of band use it.
func SplitSystem(messages []Message) (string, []Message) {
	var (
		system []string
		turns  []Message
	)
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	return strings.Join(system, "\n\n"), turns
}
