// Package models defines the domain types shared across the context engine:
// messages, offloaded chunks, state records, and retrieval results.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the producer of a message in the context window.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleState and RoleRAG mark synthetic messages injected by the hot path.
	// They are ephemeral: rebuilt per prompt, never offloaded into chunks.
	RoleState Role = "state"
	RoleRAG   Role = "rag"
)

// Synthetic reports whether the role is one of the injected memory roles.
func (r Role) Synthetic() bool {
	return r == RoleState || r == RoleRAG
}

// Message is a single ordered entry in the live context window.
type Message struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	TokenCount int       `json:"token_count"`
}

// Line renders the message as a "role: content" transcript line.
func (m Message) Line() string {
	return fmt.Sprintf("%s: %s", m.Role, m.Content)
}

// TranscriptText joins messages into the flat transcript form used for
// chunk full text and summarization input.
func TranscriptText(msgs []Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Line())
	}
	return strings.Join(lines, "\n")
}
