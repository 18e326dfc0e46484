package graph

import (
	"encoding/json"
	"fmt"
)

// State is the generic record threaded through workflows whose node set is
// assembled at run time. Pipelines with a fixed node set should prefer their
// own struct as the state type.
//
// Conventions:
//   - Data holds inter-node payload. Keys written by reusable nodes should be
//     namespaced with Scope, e.g. "intake/files".
//   - Errors and Warnings are ordered, human-readable messages. The engine
//     never reads them; conditional edges route on them.
//   - Metadata holds cross-cutting bookkeeping (current step, pause markers).
//
// A State is owned by exactly one node at a time for the duration of one
// Execute call, so it carries no locking.
type State struct {
	Data     map[string]any `json:"data"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
	Metadata map[string]any `json:"metadata"`
}

// metaPaused is the Metadata key holding the caller-managed pause reason.
const metaPaused = "paused"

// NewState creates an empty State, copying the top-level keys of seed into
// Data. Every call allocates fresh maps, so two runs never share storage.
func NewState(seed map[string]any) *State {
	s := &State{
		Data:     make(map[string]any, len(seed)),
		Errors:   []string{},
		Warnings: []string{},
		Metadata: make(map[string]any),
	}
	for k, v := range seed {
		s.Data[k] = v
	}
	return s
}

// AddError appends a formatted error message.
func (s *State) AddError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// AddWarning appends a formatted warning message.
func (s *State) AddWarning(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any error has been recorded.
func (s *State) HasErrors() bool {
	return len(s.Errors) > 0
}

// Get returns the Data value for key.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// Set stores value under key in Data.
func (s *State) Set(key string, value any) {
	if s.Data == nil {
		s.Data = make(map[string]any)
	}
	s.Data[key] = value
}

// GetString returns the Data value for key if it is a string.
func (s *State) GetString(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// GetBool returns the Data value for key if it is a bool.
func (s *State) GetBool(key string) bool {
	v, _ := s.Data[key].(bool)
	return v
}

// Scope returns a view of Data whose keys are prefixed with namespace + "/".
func (s *State) Scope(namespace string) Scope {
	return Scope{state: s, prefix: namespace + "/"}
}

// MarkPaused records a caller-managed pause marker in Metadata. The engine
// never pauses a run itself; callers inspect Paused after Invoke returns.
func (s *State) MarkPaused(reason string) {
	if s.Metadata == nil {
		s.Metadata = make(map[string]any)
	}
	s.Metadata[metaPaused] = reason
}

// Paused returns the pause reason and whether the state is marked paused.
func (s *State) Paused() (string, bool) {
	reason, ok := s.Metadata[metaPaused].(string)
	return reason, ok
}

// ClearPaused removes the pause marker before the caller resumes a run.
func (s *State) ClearPaused() {
	delete(s.Metadata, metaPaused)
}

// Clone returns an independent deep copy of the state.
func (s *State) Clone() (*State, error) {
	return deepCopy(s)
}

// Scope is a namespaced view over a State's Data.
type Scope struct {
	state  *State
	prefix string
}

// Key returns the fully-qualified Data key for name.
func (sc Scope) Key(name string) string {
	return sc.prefix + name
}

// Get returns the scoped value for name.
func (sc Scope) Get(name string) (any, bool) {
	return sc.state.Get(sc.Key(name))
}

// Set stores a scoped value.
func (sc Scope) Set(name string, value any) {
	sc.state.Set(sc.Key(name), value)
}

// GetString returns the scoped value for name if it is a string.
func (sc Scope) GetString(name string) string {
	return sc.state.GetString(sc.Key(name))
}

// deepCopy creates a deep copy of state S using JSON round-trip serialization.
//
// Limitations:
//   - Unexported struct fields are not copied
//   - Channels, functions, and complex types that don't marshal to JSON will fail
//   - Numbers inside map[string]any come back as float64
func deepCopy[S any](state S) (S, error) {
	var zero S

	data, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal state: %w", err)
	}

	var copied S
	if err := json.Unmarshal(data, &copied); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	return copied, nil
}
