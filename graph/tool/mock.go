package tool

import (
	"context"
	"sync"
)

// MockTool is a scripted Tool for tests and offline runs.
//
// Responses are returned in order; once exhausted the last one repeats.
// With no responses configured Call returns an empty map. Err, when set,
// is returned instead. Every call is recorded, including failed ones.
type MockTool struct {
	ToolName  string
	Responses []map[string]any
	Err       error

	// Calls holds the input of every call.
	Calls []map[string]any

	mu   sync.Mutex
	next int
}

// Name implements Tool.
func (m *MockTool) Name() string { return m.ToolName }

// Call implements Tool.
func (m *MockTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, input)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]any{}, nil
	}

	idx := m.next
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.next++
	}
	return m.Responses[idx], nil
}

// Reset clears the call history and rewinds the responses.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.next = 0
}

// CallCount returns the number of calls made.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
