// Package conversation holds the per-session chat log. Turns are
// append-only and immutable once recorded; the only destructive
// operation is clearing the whole log.
package conversation

import (
	"github.com/dqassist/dqassist/internal/sqlrun"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one recorded message. Result is present only on assistant
// turns that triggered SQL execution.
type Turn struct {
	Role      string                   `json:"role"`
	Content   string                   `json:"content"`
	Timestamp string                   `json:"timestamp"`
	Database  string                   `json:"database"`
	Result    []sqlrun.ExecutionResult `json:"result,omitempty"`
}

// Store is a single session's ordered log. It carries no locking of its
// own: within one session access is single-writer, and concurrent
// requests against the same session must be serialized by the caller.
type Store struct {
	turns []Turn
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(turn Turn) {
	s.turns = append(s.turns, turn)
}

// All returns the turns in insertion order. The returned slice is a
// copy; mutating it does not affect the store.
func (s *Store) All() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Recent returns the last n turns in insertion order, or all of them
// when fewer exist.
func (s *Store) Recent(n int) []Turn {
	if n <= 0 {
		return nil
	}
	start := len(s.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.turns)-start)
	copy(out, s.turns[start:])
	return out
}

func (s *Store) Len() int {
	return len(s.turns)
}

// Clear resets the log to empty.
func (s *Store) Clear() {
	s.turns = nil
}
