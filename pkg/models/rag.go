package models

import (
	"strings"
	"time"
)

// SemanticHit is one vector-search result joined with its stored summary.
type SemanticHit struct {
	ChunkID   string    `json:"chunk_id"`
	Summary   string    `json:"summary"`
	Score     float32   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// RAGResult aggregates both retrieval legs for one query. Semantic hits are
// ordered by score descending (ties broken by recency); relational triples
// keep the graph's insertion order.
type RAGResult struct {
	Semantic   []SemanticHit `json:"semantic"`
	Relational []string      `json:"relational"`
}

// Empty reports whether the result carries nothing to inject.
func (r RAGResult) Empty() bool {
	return len(r.Semantic) == 0 && len(r.Relational) == 0
}

// ItemCount is the number of injected memory items (semantic + relational).
func (r RAGResult) ItemCount() int {
	return len(r.Semantic) + len(r.Relational)
}

// InjectionText renders the retrieval block injected into the prompt.
// Empty results render as an empty string and produce no injection.
func (r RAGResult) InjectionText() string {
	if r.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("[CONTEXT FROM MEMORY]")
	for _, hit := range r.Semantic {
		b.WriteString("\n- ")
		b.WriteString(hit.Summary)
	}
	for _, triple := range r.Relational {
		b.WriteString("\n- ")
		b.WriteString(triple)
	}
	return b.String()
}
