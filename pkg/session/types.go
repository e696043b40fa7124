// Package session owns per-conversation state and the orchestrator that
// drives a user turn through admission, retrieval, generation, and echo
// control.
package session

import (
	"sync"
	"time"

	"github.com/elevend0g/vicw/pkg/contextmgr"
	"github.com/elevend0g/vicw/pkg/echoguard"
)

// DefaultID is the session used when a caller does not name one.
const DefaultID = "default"

// Session is one conversation: its live context window and echo history.
// All turn execution for a session is serialized through mu, so a session
// handles one request at a time while distinct sessions run in parallel.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	window    *contextmgr.Window
	history   *echoguard.History
	updatedAt time.Time
}

// Stats snapshots the session's context window.
func (s *Session) Stats() contextmgr.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Snapshot()
}

// Reset clears the live window and echo history. The pinned header survives
// and nothing already offloaded to external memory is touched.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window.Reset()
	s.history.Clear()
	s.updatedAt = time.Now().UTC()
}

// UpdatedAt returns the time of the last completed turn or reset.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}

// TurnResult is the outcome of one completed user turn.
type TurnResult struct {
	Response         string    `json:"response"`
	Timestamp        time.Time `json:"timestamp"`
	TokensInContext  int       `json:"tokens_in_context"`
	RAGItemsInjected int       `json:"rag_items_injected"`
}
