package echoguard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/semantic"
)

// Escalation tier labels, in retry order.
const (
	TierPolite    = "polite"
	TierForceful  = "forceful"
	TierEmergency = "emergency"
)

// Tier maps a 1-based retry index onto its escalation tier.
func Tier(retry int) string {
	switch {
	case retry <= 1:
		return TierPolite
	case retry == 2:
		return TierForceful
	default:
		return TierEmergency
	}
}

// CheckResult reports one echo evaluation. Embedding carries the candidate
// vector so an accepted response can be pushed without re-embedding; it is
// nil when the duplicate was caught by hash or the embedder failed.
type CheckResult struct {
	Echo       bool
	Similarity float32
	Embedding  []float32
}

// Guard decides whether a candidate assistant response repeats recent
// history. It holds policy only; the per-session ring is passed in.
type Guard struct {
	embedder     semantic.Embedder
	enabled      bool
	threshold    float32
	maxRetries   int
	stripOnFinal bool
}

// NewGuard builds a guard from config.
func NewGuard(embedder semantic.Embedder, cfg config.EchoGuardConfig) *Guard {
	return &Guard{
		embedder:     embedder,
		enabled:      cfg.Enabled,
		threshold:    cfg.SimilarityThreshold,
		maxRetries:   cfg.MaxRetries,
		stripOnFinal: cfg.StripOnFinal,
	}
}

// Enabled reports whether echo checking is active.
func (g *Guard) Enabled() bool {
	return g.enabled
}

// MaxRetries returns the regeneration attempt budget after a rejection.
func (g *Guard) MaxRetries() int {
	return g.maxRetries
}

// Check evaluates a candidate response against the session's history.
// An exact textual duplicate rejects without embedding. An embedder
// failure accepts the candidate: the guard degrades open.
func (g *Guard) Check(ctx context.Context, history *History, text string) CheckResult {
	if history.Contains(text) {
		return CheckResult{Echo: true, Similarity: 1}
	}

	embedding, err := g.embedder.Embed(ctx, text)
	if err != nil {
		slog.Warn("echo check embedding failed, accepting response", "error", err)
		return CheckResult{}
	}

	sim := history.MaxSimilarity(embedding)
	return CheckResult{Echo: sim >= g.threshold, Similarity: sim, Embedding: embedding}
}

// EmergencyStrip reports whether the prompt for this retry should drop RAG
// and state injections, keeping only the pinned header and latest user turn.
func (g *Guard) EmergencyStrip(retry int) bool {
	return g.stripOnFinal && retry >= g.maxRetries
}

// Warning builds the system directive injected before retry attempt
// `retry` (1-based). echoed is the rejected response text.
func (g *Guard) Warning(retry int, echoed string) models.Message {
	var content string
	switch Tier(retry) {
	case TierPolite:
		content = "Your last answer was nearly identical to a recent response. Provide new information or a different angle."
	case TierForceful:
		content = fmt.Sprintf("Do not repeat yourself. Your previous answer began %q and that phrasing is forbidden. State new information or a concrete next action.", snippet(echoed, 80))
	default:
		content = "EMERGENCY OVERRIDE: repeated responses detected. Disregard earlier retrieved context. Conclude the current topic or pivot directly to the user's latest message."
	}
	return models.Message{
		Role:      models.RoleSystem,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
