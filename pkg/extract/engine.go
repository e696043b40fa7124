// Package extract derives structured signals from raw conversation text:
// state candidates via the pattern catalog, and entity names for the
// knowledge graph. Everything here is pure string processing; persistence
// decisions belong to the callers.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	connectorRe     = regexp.MustCompile(`^(to|that|the|a|an)\s+`)
	descriptionCut  = regexp.MustCompile(`[,;.!?]`)
)

// skipWords are single-word descriptions that carry no state.
var skipWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"if": {}, "then": {}, "we": {}, "i": {}, "you": {},
}

// Engine matches catalog patterns against text and emits state candidates.
type Engine struct {
	catalog *config.Catalog

	// order fixes the type iteration so extraction is deterministic:
	// builtin types first, catalog extensions alphabetically after.
	order []string
}

// NewEngine builds an engine over a loaded catalog.
func NewEngine(catalog *config.Catalog) *Engine {
	order := make([]string, 0, len(catalog.StateTypes))
	for _, t := range models.StateTypes {
		if _, ok := catalog.StateTypes[string(t)]; ok {
			order = append(order, string(t))
		}
	}
	var extras []string
	for name := range catalog.StateTypes {
		if !models.StateType(name).Valid() {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	order = append(order, extras...)

	return &Engine{catalog: catalog, order: order}
}

// States extracts state candidates from text. Per sentence and type,
// completion patterns outrank invalidation patterns, which outrank creation
// patterns; descriptions are deduplicated across the whole text, so the
// highest-priority reading of a description wins.
func (e *Engine) States(text string) []models.StateCandidate {
	if text == "" || len(e.catalog.StateTypes) == 0 {
		return nil
	}

	var candidates []models.StateCandidate
	seen := make(map[string]struct{})

	// matchGroup records the first pattern in the group that produces a
	// valid, unseen description. Patterns that match but capture nothing
	// usable do not block later patterns in the same group.
	matchGroup := func(lower, typ string, patterns []string, status models.StateStatus) {
		for _, pattern := range patterns {
			if !strings.Contains(lower, pattern) {
				continue
			}
			desc := description(lower, pattern)
			if desc == "" {
				continue
			}
			if _, dup := seen[desc]; dup {
				continue
			}
			seen[desc] = struct{}{}
			candidates = append(candidates, models.StateCandidate{
				Type:        models.StateType(typ),
				Status:      status,
				Description: desc,
			})
			return
		}
	}

	for _, sentence := range splitSentences(text) {
		lower := strings.ToLower(sentence)

		for _, typ := range e.order {
			group := e.catalog.StateTypes[typ]
			matchGroup(lower, typ, group.Complete, models.StateCompleted)
			matchGroup(lower, typ, group.Invalidate, models.StateInvalid)
			matchGroup(lower, typ, group.Create, models.StateActive)
		}
	}
	return candidates
}

func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// description captures the normalized text after a matched trigger: leading
// connectors dropped, cut at the first clause boundary, whitespace
// collapsed. Too-short, too-long, and stopword-only captures yield "".
func description(sentence, pattern string) string {
	idx := strings.Index(sentence, pattern)
	if idx < 0 {
		return ""
	}

	after := strings.TrimSpace(sentence[idx+len(pattern):])
	after = connectorRe.ReplaceAllString(after, "")

	desc := descriptionCut.Split(after, 2)[0]
	desc = strings.Join(strings.Fields(desc), " ")

	if len(desc) < 3 || len(desc) > 100 {
		return ""
	}
	if _, skip := skipWords[desc]; skip {
		return ""
	}
	return desc
}
