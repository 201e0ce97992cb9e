// Package session holds the mutable state shared by every stage of one
// pipeline run. Values are either a scalar string or an ordered list of
// strings; Append is the only way list fields grow.
package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// State is a session-scoped key-value store. It lives for exactly one run
// and is never persisted. Concurrent stages may read while another writes,
// so every access takes the lock even though writers use disjoint fields.
type State struct {
	mu        sync.RWMutex
	id        string
	values    map[string]any
	escalated bool
}

// New creates an empty session state with a fresh session ID.
func New() *State {
	return &State{
		id:     uuid.NewString(),
		values: make(map[string]any),
	}
}

// ID returns the session identifier.
func (s *State) ID() string { return s.id }

// Set stores a scalar value, replacing whatever was there.
func (s *State) Set(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[field] = value
}

// Get returns the raw value for a field.
func (s *State) Get(field string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[field]
	return v, ok
}

// GetString renders a field as a single string. List fields are joined with
// newlines; a missing field renders as "".
func (s *State) GetString(field string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.values[field].(type) {
	case string:
		return v
	case []string:
		out := ""
		for i, item := range v {
			if i > 0 {
				out += "\n"
			}
			out += item
		}
		return out
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetList returns a field in list shape. A scalar value comes back as a
// one-element list; a missing field comes back empty. The returned slice is
// a copy.
func (s *State) GetList(field string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.values[field].(type) {
	case string:
		return []string{v}
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return nil
	}
}

// Append adds value to the named field, preserving call order. A missing
// field becomes a one-element list; a prior scalar is normalized to a
// one-element list before the append, so a field accessed as a list stays
// list-shaped forever after.
func (s *State) Append(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []string
	switch v := s.values[field].(type) {
	case nil:
		list = nil
	case string:
		list = []string{v}
	case []string:
		list = v
	default:
		list = []string{fmt.Sprintf("%v", v)}
	}
	s.values[field] = append(list, value)
}

// Len reports how many entries a field holds (1 for a scalar, 0 if absent).
func (s *State) Len(field string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.values[field].(type) {
	case string:
		return 1
	case []string:
		return len(v)
	default:
		return 0
	}
}

// Keys returns the populated field names, sorted.
func (s *State) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the current values, for logging and tests.
func (s *State) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Escalate signals that the current loop should stop after this round.
// It is how the exit_loop tool reaches the loop controller.
func (s *State) Escalate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalated = true
}

// Escalated reports whether loop termination has been requested.
func (s *State) Escalated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.escalated
}

// ResetEscalation clears the termination request. Loop controllers call it
// before their first round so a stale flag cannot end a new loop early.
func (s *State) ResetEscalation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalated = false
}
