package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elevend0g/vicw/pkg/contextmgr"
	"github.com/elevend0g/vicw/pkg/echoguard"
	"github.com/elevend0g/vicw/pkg/llm"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/queue"
	"github.com/elevend0g/vicw/pkg/retrieval"
	"github.com/elevend0g/vicw/pkg/state"
)

// Orchestrator drives one user turn end to end: context admission with
// pressure relief, memory retrieval, state injection, generation, and the
// echo-guard regeneration loop. Cold-path processing is latched off while
// a generation is in flight.
type Orchestrator struct {
	sessions  *Manager
	retriever *retrieval.Coordinator
	tracker   *state.Tracker
	guard     *echoguard.Guard
	generator llm.Generator
	queue     *queue.Queue
	latch     *queue.Latch
	metrics   *metrics.Metrics
}

// NewOrchestrator wires the turn pipeline. The metrics handle may be nil.
func NewOrchestrator(
	sessions *Manager,
	retriever *retrieval.Coordinator,
	tracker *state.Tracker,
	guard *echoguard.Guard,
	generator llm.Generator,
	q *queue.Queue,
	latch *queue.Latch,
	m *metrics.Metrics,
) *Orchestrator {
	if sessions == nil {
		panic("NewOrchestrator: sessions must not be nil")
	}
	if generator == nil {
		panic("NewOrchestrator: generator must not be nil")
	}
	if q == nil || latch == nil {
		panic("NewOrchestrator: queue and latch must not be nil")
	}
	return &Orchestrator{
		sessions:  sessions,
		retriever: retriever,
		tracker:   tracker,
		guard:     guard,
		generator: generator,
		queue:     q,
		latch:     latch,
		metrics:   m,
	}
}

// Sessions returns the session manager.
func (o *Orchestrator) Sessions() *Manager {
	return o.sessions
}

// Turn runs one user message through the full pipeline and returns the
// accepted assistant response. Retrieval and state-injection failures
// degrade to an uninjected prompt; a generation failure after retries is
// returned to the caller. The user message stays in the window either way.
func (o *Orchestrator) Turn(ctx context.Context, sessionID, userMessage string, useRAG bool) (TurnResult, error) {
	sess := o.sessions.GetOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if shed := sess.window.Add(models.RoleUser, userMessage); shed != nil {
		o.enqueue(shed)
	}

	var ragMsg *models.Message
	ragItems := 0
	if useRAG && o.retriever != nil {
		result := o.retriever.Query(ctx, userMessage)
		ragItems = result.ItemCount()
		ragMsg = retrieval.Injection(result)
	}

	var stateMsg *models.Message
	if o.tracker != nil {
		msg, err := o.tracker.Inject(ctx, sess.ID)
		if err != nil {
			slog.Warn("State injection failed, continuing without state memory",
				"session_id", sess.ID, "error", err)
		} else {
			stateMsg = msg
		}
	}

	o.latch.Pause()
	defer o.latch.Resume()

	text, embedding, err := o.generate(ctx, sess, stateMsg, ragMsg)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn failed for session %s: %w", sess.ID, err)
	}

	sess.history.Push(embedding, text)
	if shed := sess.window.Add(models.RoleAssistant, text); shed != nil {
		o.enqueue(shed)
	}
	sess.touch()

	current := sess.window.CurrentTokens()
	o.metrics.SetContextTokens(sess.ID, current)

	return TurnResult{
		Response:         text,
		Timestamp:        time.Now().UTC(),
		TokensInContext:  current,
		RAGItemsInjected: ragItems,
	}, nil
}

// generate produces an accepted response, regenerating behind the echo
// guard. It returns the response text and its embedding when one was
// computed during the final check.
func (o *Orchestrator) generate(ctx context.Context, sess *Session, stateMsg, ragMsg *models.Message) (string, []float32, error) {
	completion, err := o.generator.Generate(ctx, sess.window.Prompt(stateMsg, ragMsg))
	if err != nil {
		return "", nil, err
	}

	if o.guard == nil || !o.guard.Enabled() {
		return completion.Text, nil, nil
	}

	for retry := 1; ; retry++ {
		check := o.guard.Check(ctx, sess.history, completion.Text)
		if !check.Echo {
			return completion.Text, check.Embedding, nil
		}
		if retry > o.guard.MaxRetries() {
			slog.Warn("Echo guard exhausted, accepting repeated response",
				"session_id", sess.ID, "similarity", check.Similarity)
			o.metrics.EchoGuardExhausted()
			return completion.Text, check.Embedding, nil
		}

		tier := echoguard.Tier(retry)
		o.metrics.EchoRejected(tier)
		slog.Info("Echo detected, regenerating",
			"session_id", sess.ID, "similarity", check.Similarity,
			"retry", retry, "tier", tier)

		// The warning rides only on this attempt's prompt; it is never
		// added to the live window.
		warning := o.guard.Warning(retry, completion.Text)
		var prompt []models.Message
		if o.guard.EmergencyStrip(retry) {
			prompt = append(sess.window.StrippedPrompt(), warning)
		} else {
			prompt = append(sess.window.Prompt(stateMsg, ragMsg), warning)
		}

		completion, err = o.generator.Generate(ctx, prompt)
		if err != nil {
			return "", nil, err
		}
	}
}

func (o *Orchestrator) enqueue(shed *contextmgr.Shed) {
	o.metrics.OffloadInitiated()
	if !o.queue.Enqueue(shed.Job) {
		o.metrics.QueueDropped()
	}
	o.metrics.SetQueueDepth(o.queue.Len())
}
