// Package state maintains the conversational state machine: goals, tasks,
// decisions, and facts extracted from offloaded turns, kept as graph nodes
// and injected back into the prompt as an out-of-band checklist. The
// checklist is what stops the model from re-proposing work the conversation
// already finished.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/storage"
	"github.com/elevend0g/vicw/pkg/tokens"
)

// Tracker reconciles extracted state candidates against the store and
// builds the state-memory injection for prompts.
type Tracker struct {
	store storage.StateStore
	cfg   config.StateConfig
}

// NewTracker creates a tracker over the given state store.
func NewTracker(store storage.StateStore, cfg config.StateConfig) *Tracker {
	return &Tracker{store: store, cfg: cfg}
}

// Record upserts each candidate into the store. Candidates are independent;
// a failing upsert is reported but does not stop the rest.
func (t *Tracker) Record(ctx context.Context, namespace string, candidates []models.StateCandidate) error {
	if !t.cfg.TrackingEnabled {
		return nil
	}

	var errs []error
	for _, cand := range candidates {
		if err := t.upsert(ctx, namespace, cand); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s %q: %w", cand.Type, cand.Description, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// upsert lands one candidate. A state is unique per (namespace, type,
// fuzzy-matched description): new descriptions create nodes, completion or
// invalidation patterns transition the matching active node, and anything
// else is recorded as evidence of a fresh mention.
func (t *Tracker) upsert(ctx context.Context, namespace string, cand models.StateCandidate) error {
	existing, err := t.store.ListStates(ctx, storage.StateFilter{
		Namespace: namespace,
		Type:      cand.Type,
	})
	if err != nil {
		return fmt.Errorf("failed to list states: %w", err)
	}

	match := findMatch(existing, cand.Description)
	if match == nil {
		now := time.Now().UTC()
		st := models.State{
			ID:          models.NewStateID(),
			Namespace:   namespace,
			Type:        cand.Type,
			Description: strings.TrimSpace(cand.Description),
			Status:      cand.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := t.store.CreateState(ctx, st); err != nil {
			return fmt.Errorf("failed to create state: %w", err)
		}
		slog.Info("State created",
			"namespace", namespace,
			"type", st.Type,
			"status", st.Status,
			"description", st.Description)
		return nil
	}

	// Only active states transition. A completed or invalid state is
	// settled; mentioning it again is evidence, not a reopen.
	if match.Status == models.StateActive && cand.Status != models.StateActive {
		if err := t.store.UpdateStateStatus(ctx, match.ID, cand.Status); err != nil {
			return fmt.Errorf("failed to transition state: %w", err)
		}
		slog.Info("State transitioned",
			"namespace", namespace,
			"type", match.Type,
			"status", cand.Status,
			"description", match.Description)
		return nil
	}

	if err := t.store.TouchState(ctx, match.ID); err != nil {
		return fmt.Errorf("failed to touch state: %w", err)
	}
	return nil
}

func findMatch(existing []models.State, desc string) *models.State {
	for i := range existing {
		if matches(existing[i].Description, desc) {
			return &existing[i]
		}
	}
	return nil
}

var sectionLabels = map[models.StateType]string{
	models.StateGoal:     "Active goals",
	models.StateTask:     "Active tasks",
	models.StateDecision: "Decisions",
	models.StateFact:     "Known facts",
}

const loopWarningFormat = "⚠️ LOOP DETECTED: Repeated focus on %s. Consider concluding or exploring alternatives."

// Inject builds the state-memory message for the next prompt, or nil when
// there is nothing to say. Every included active state counts as a visit;
// the loop warning names the most-visited state once its fresh count
// reaches the boredom threshold. Visit counts reset only on a status
// transition, never by the warning itself.
func (t *Tracker) Inject(ctx context.Context, namespace string) (*models.Message, error) {
	if !t.cfg.TrackingEnabled {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("[STATE MEMORY]\n")
	sections := 0

	var warnDesc string
	warnVisits := 0

	for _, stateType := range models.StateTypes {
		active, err := t.store.ListStates(ctx, storage.StateFilter{
			Namespace: namespace,
			Type:      stateType,
			Status:    models.StateActive,
			Limit:     t.limit(stateType),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list active states: %w", err)
		}
		if len(active) == 0 {
			continue
		}

		descs := make([]string, 0, len(active))
		for _, st := range active {
			descs = append(descs, st.Description)

			visits, err := t.store.IncrementVisits(ctx, st.ID)
			if err != nil {
				slog.Warn("Visit increment failed", "state_id", st.ID, "error", err)
				continue
			}
			if t.cfg.BoredomEnabled && visits >= t.cfg.BoredomThreshold && visits > warnVisits {
				warnDesc, warnVisits = st.Description, visits
			}
		}

		b.WriteString(sectionLabels[stateType])
		b.WriteString(": ")
		b.WriteString(strings.Join(descs, "; "))
		b.WriteString("\n")
		sections++
	}

	completed, err := t.store.ListStates(ctx, storage.StateFilter{
		Namespace: namespace,
		Status:    models.StateCompleted,
		Limit:     t.cfg.RecentCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed states: %w", err)
	}
	if len(completed) > 0 {
		descs := make([]string, 0, len(completed))
		for _, st := range completed {
			descs = append(descs, st.Description)
		}
		b.WriteString("Recently completed: ")
		b.WriteString(strings.Join(descs, "; "))
		b.WriteString("\n")
		sections++
	}

	if sections == 0 {
		return nil, nil
	}
	if warnDesc != "" {
		b.WriteString(fmt.Sprintf(loopWarningFormat, warnDesc))
		b.WriteString("\n")
	}

	content := strings.TrimRight(b.String(), "\n")
	return &models.Message{
		Role:       models.RoleState,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		TokenCount: tokens.EstimateMessage(content),
	}, nil
}

func (t *Tracker) limit(stateType models.StateType) int {
	switch stateType {
	case models.StateGoal:
		return t.cfg.LimitGoal
	case models.StateTask:
		return t.cfg.LimitTask
	case models.StateDecision:
		return t.cfg.LimitDecision
	default:
		return t.cfg.LimitFact
	}
}
