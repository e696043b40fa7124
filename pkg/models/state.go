package models

import (
	"time"

	"github.com/google/uuid"
)

// StateType classifies an extracted conversational state record.
type StateType string

const (
	StateGoal     StateType = "goal"
	StateTask     StateType = "task"
	StateDecision StateType = "decision"
	StateFact     StateType = "fact"
)

// StateTypes lists all state types in injection order.
var StateTypes = []StateType{StateGoal, StateTask, StateDecision, StateFact}

// Valid reports whether t is one of the known state types.
func (t StateType) Valid() bool {
	switch t {
	case StateGoal, StateTask, StateDecision, StateFact:
		return true
	}
	return false
}

// StateStatus is the lifecycle status of a state record.
type StateStatus string

const (
	StateActive    StateStatus = "active"
	StateCompleted StateStatus = "completed"
	StateInvalid   StateStatus = "invalid"
)

// State is a first-class record of a goal, task, decision, or fact tracked
// across turns. Uniqueness is (namespace, type, normalized description);
// near-duplicates collapse via fuzzy matching in the tracker.
type State struct {
	ID          string      `json:"state_id"`
	Namespace   string      `json:"namespace"`
	Type        StateType   `json:"state_type"`
	Description string      `json:"description"`
	Status      StateStatus `json:"status"`
	VisitCount  int         `json:"visit_count"`
	LastVisited time.Time   `json:"last_visited"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewStateID returns a fresh state node identifier.
func NewStateID() string {
	return "state_" + uuid.NewString()
}

// StateCandidate is the extractor's output: a typed description with the
// status the observed pattern implies. Pure data; the tracker decides how it
// lands in the graph.
type StateCandidate struct {
	Type        StateType   `json:"state_type"`
	Status      StateStatus `json:"status"`
	Description string      `json:"description"`
}
