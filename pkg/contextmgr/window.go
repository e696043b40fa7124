// Package contextmgr owns the hot-path context window: the pinned header,
// the live message list, token pressure control with hysteresis, and prompt
// assembly. Shedding is synchronous bookkeeping only; persistence of the
// removed content happens in the cold path.
package contextmgr

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/tokens"
)

// Shed reports one pressure-relief event. The job carries the removed
// messages; the caller enqueues it for cold-path processing.
type Shed struct {
	Job          models.OffloadJob
	TokensBefore int
	TokensAfter  int
	Elapsed      time.Duration
}

// Stats is a point-in-time snapshot of one window.
type Stats struct {
	CurrentTokens int     `json:"current_tokens"`
	MaxTokens     int     `json:"max_tokens"`
	MessageCount  int     `json:"message_count"`
	OffloadCount  int     `json:"offload_count"`
	PressurePct   float64 `json:"pressure_percentage"`
	Suppressed    bool    `json:"suppressed"`
}

// Window is the live context of one session. It is not safe for concurrent
// use; the owning session serializes access.
type Window struct {
	namespace  string
	pinned     models.Message
	messages   []models.Message
	liveTokens int

	maxTokens int
	trigger   float64
	target    float64
	resume    float64

	suppressed bool
	sheds      int
}

// NewWindow builds a window for one session. The pinned header is immutable
// for the window's lifetime and is never shed.
func NewWindow(namespace, pinnedHeader string, cfg config.ContextConfig) *Window {
	return &Window{
		namespace: namespace,
		pinned: models.Message{
			Role:       models.RoleSystem,
			Content:    pinnedHeader,
			Timestamp:  time.Now().UTC(),
			TokenCount: tokens.EstimateMessage(pinnedHeader),
		},
		maxTokens: cfg.MaxTokens,
		trigger:   cfg.OffloadThreshold,
		target:    cfg.TargetAfterRelief,
		resume:    cfg.HysteresisThreshold,
	}
}

// CurrentTokens returns the pinned header plus live message token total.
func (w *Window) CurrentTokens() int {
	return w.pinned.TokenCount + w.liveTokens
}

// PinnedHeader returns the immutable prompt prefix.
func (w *Window) PinnedHeader() string {
	return w.pinned.Content
}

// LastUserContent returns the content of the most recent user message, or
// "" when none exists. Used by the emergency echo override.
func (w *Window) LastUserContent() string {
	for i := len(w.messages) - 1; i >= 0; i-- {
		if w.messages[i].Role == models.RoleUser {
			return w.messages[i].Content
		}
	}
	return ""
}

// Add appends a message, evaluates pressure, and sheds if required. It
// returns a non-nil Shed when relief fired; the caller owns enqueueing the
// job. No I/O happens here.
func (w *Window) Add(role models.Role, content string) *Shed {
	cost := tokens.EstimateMessage(content)
	w.messages = append(w.messages, models.Message{
		Role:       role,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		TokenCount: cost,
	})
	w.liveTokens += cost

	w.maybeResume()
	if !w.pressured() || w.suppressed {
		return nil
	}

	shed := w.shed()
	if shed != nil {
		w.suppressed = true
		w.maybeResume()
	}
	return shed
}

// RollbackLastAssistant removes the most recently appended message if it is
// an assistant turn, reversing its token cost. Returns false otherwise.
func (w *Window) RollbackLastAssistant() bool {
	if len(w.messages) == 0 {
		return false
	}
	last := w.messages[len(w.messages)-1]
	if last.Role != models.RoleAssistant {
		return false
	}
	w.messages = w.messages[:len(w.messages)-1]
	w.liveTokens -= last.TokenCount
	w.maybeResume()
	return true
}

// Prompt assembles the LLM input: pinned header, then the optional state
// and RAG injections, then the live messages. When header plus injections
// exceed 90% of the budget, the RAG injection is dropped first, then the
// state injection; the header and live messages are never dropped.
func (w *Window) Prompt(state, rag *models.Message) []models.Message {
	budget := int(0.9 * float64(w.maxTokens))
	injected := w.pinned.TokenCount
	if state != nil {
		injected += state.TokenCount
	}
	if rag != nil {
		injected += rag.TokenCount
	}
	if injected > budget && rag != nil {
		injected -= rag.TokenCount
		rag = nil
	}
	if injected > budget && state != nil {
		state = nil
	}

	prompt := make([]models.Message, 0, len(w.messages)+3)
	prompt = append(prompt, w.pinned)
	if state != nil {
		prompt = append(prompt, *state)
	}
	if rag != nil {
		prompt = append(prompt, *rag)
	}
	return append(prompt, w.messages...)
}

// StrippedPrompt assembles the minimal input for the emergency echo
// override: the pinned header and the most recent user turn, nothing else.
func (w *Window) StrippedPrompt() []models.Message {
	prompt := []models.Message{w.pinned}
	for i := len(w.messages) - 1; i >= 0; i-- {
		if w.messages[i].Role == models.RoleUser {
			prompt = append(prompt, w.messages[i])
			break
		}
	}
	return prompt
}

// Snapshot returns current window statistics.
func (w *Window) Snapshot() Stats {
	current := w.CurrentTokens()
	return Stats{
		CurrentTokens: current,
		MaxTokens:     w.maxTokens,
		MessageCount:  len(w.messages),
		OffloadCount:  w.sheds,
		PressurePct:   100 * float64(current) / float64(w.maxTokens),
		Suppressed:    w.suppressed,
	}
}

// Reset clears the live messages and counters. The pinned header survives.
func (w *Window) Reset() {
	w.messages = nil
	w.liveTokens = 0
	w.suppressed = false
	w.sheds = 0
}

func (w *Window) pressured() bool {
	return float64(w.CurrentTokens()) >= w.trigger*float64(w.maxTokens)
}

func (w *Window) maybeResume() {
	if w.suppressed && float64(w.CurrentTokens()) <= w.resume*float64(w.maxTokens) {
		w.suppressed = false
	}
}

// shed removes the longest contiguous prefix of live messages that brings
// usage to θ_target, leaving at least the most recent completed exchange.
// The removed user and assistant messages form exactly one chunk; a prefix
// with no such messages is a no-op.
func (w *Window) shed() *Shed {
	start := time.Now()
	before := w.CurrentTokens()
	targetTokens := w.target * float64(w.maxTokens)

	chunkID := models.NewChunkID()
	marker := fmt.Sprintf("[ARCHIVED mem_id:%s]", chunkID)
	placeholder := models.Message{
		Role:       models.RoleSystem,
		Content:    marker,
		Timestamp:  time.Now().UTC(),
		TokenCount: tokens.EstimateMessage(marker),
	}

	boundary := w.shedBoundary()
	removed := 0
	idx := 0
	for idx < boundary && float64(before-removed+placeholder.TokenCount) > targetTokens {
		removed += w.messages[idx].TokenCount
		idx++
	}
	if idx == 0 {
		return nil
	}

	content := make([]models.Message, 0, idx)
	for _, m := range w.messages[:idx] {
		if m.Role == models.RoleUser || m.Role == models.RoleAssistant {
			content = append(content, m)
		}
	}
	if len(content) == 0 {
		return nil
	}

	job := models.NewOffloadJob(w.namespace, w.pinned.Content, content)
	job.ChunkID = chunkID

	w.messages = append([]models.Message{placeholder}, w.messages[idx:]...)
	w.liveTokens += placeholder.TokenCount - removed
	w.sheds++

	after := w.CurrentTokens()
	slog.Info("pressure relief",
		"namespace", w.namespace,
		"chunk_id", chunkID,
		"messages_removed", idx,
		"tokens_before", before,
		"tokens_after", after,
	)
	return &Shed{
		Job:          job,
		TokensBefore: before,
		TokensAfter:  after,
		Elapsed:      time.Since(start),
	}
}

// shedBoundary returns the first index that must stay: the user message
// opening the most recent completed exchange, falling back to the last user
// turn, then to the final message.
func (w *Window) shedBoundary() int {
	lastAssistant := -1
	for i := len(w.messages) - 1; i >= 0; i-- {
		if w.messages[i].Role == models.RoleAssistant {
			lastAssistant = i
			break
		}
	}
	for i := lastAssistant; i >= 0; i-- {
		if w.messages[i].Role == models.RoleUser {
			return i
		}
	}
	for i := len(w.messages) - 1; i >= 0; i-- {
		if w.messages[i].Role == models.RoleUser {
			return i
		}
	}
	if len(w.messages) == 0 {
		return 0
	}
	return len(w.messages) - 1
}
