package session

import (
	"sort"
	"sync"
	"time"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/contextmgr"
	"github.com/elevend0g/vicw/pkg/echoguard"
)

// Manager hands out sessions by ID, creating them on first use. Every
// session starts with the configured system prompt as its pinned header
// and the session ID as its state namespace.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	systemPrompt string
	contextCfg   config.ContextConfig
	echoHistory  int
}

// NewManager creates a session manager.
func NewManager(systemPrompt string, contextCfg config.ContextConfig, echoHistory int) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		systemPrompt: systemPrompt,
		contextCfg:   contextCfg,
		echoHistory:  echoHistory,
	}
}

// GetOrCreate returns the session with the given ID, creating it if
// needed. An empty ID maps to DefaultID.
func (m *Manager) GetOrCreate(id string) *Session {
	if id == "" {
		id = DefaultID
	}

	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess
	}

	now := time.Now().UTC()
	sess = &Session{
		ID:        id,
		CreatedAt: now,
		window:    contextmgr.NewWindow(id, m.systemPrompt, m.contextCfg),
		history:   echoguard.NewHistory(m.echoHistory),
		updatedAt: now,
	}
	m.sessions[id] = sess
	return sess
}

// Get returns an existing session, or nil when the ID is unknown.
func (m *Manager) Get(id string) *Session {
	if id == "" {
		id = DefaultID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Reset clears the named session's live window and echo history. It
// reports whether the session existed.
func (m *Manager) Reset(id string) bool {
	sess := m.Get(id)
	if sess == nil {
		return false
	}
	sess.Reset()
	return true
}

// List returns all session IDs in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
