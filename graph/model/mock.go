package model

import (
	"context"
	"sync"
)

// MockChatModel is a scripted ChatModel for tests and offline runs.
//
// Responses are returned in order; once exhausted the last one repeats.
// With no Responses, Reply (if set) computes the answer from the messages.
type MockChatModel struct {
	Responses []ChatOut

	// Reply computes a response when Responses is empty.
	Reply func(messages []Message) ChatOut

	// Err, when set, is returned by every call.
	Err error

	// Calls records the messages of every call.
	Calls [][]Message

	mu        sync.Mutex
	callIndex int
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]Message(nil), messages...))

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		if m.Reply != nil {
			return m.Reply(messages), nil
		}
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Reset clears recorded calls and rewinds the response script.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Chat was called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
