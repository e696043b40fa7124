// Package echoguard detects near-duplicate assistant responses and drives
// the escalating regeneration directives used to break response loops.
package echoguard

import (
	"crypto/sha256"
	"time"

	"github.com/elevend0g/vicw/pkg/semantic"
)

type entry struct {
	embedding []float32
	textHash  [sha256.Size]byte
	createdAt time.Time
}

// History is a fixed-capacity ring of recent assistant responses. It is not
// safe for concurrent use; each session serializes access through its turn
// lock.
type History struct {
	entries []entry
	head    int
	count   int
}

// NewHistory returns a ring holding up to capacity entries. Capacities
// below one are raised to one.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]entry, capacity)}
}

// Push records a response, evicting the oldest entry when full. A nil
// embedding is allowed: the entry then matches only by exact text.
func (h *History) Push(embedding []float32, text string) {
	var vec []float32
	if embedding != nil {
		vec = append([]float32(nil), embedding...)
	}
	h.entries[h.head] = entry{
		embedding: vec,
		textHash:  sha256.Sum256([]byte(text)),
		createdAt: time.Now().UTC(),
	}
	h.head = (h.head + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
}

// Clear drops every entry. Capacity is retained.
func (h *History) Clear() {
	for i := range h.entries {
		h.entries[i] = entry{}
	}
	h.head = 0
	h.count = 0
}

// Contains reports whether an entry with exactly this text is present.
func (h *History) Contains(text string) bool {
	hash := sha256.Sum256([]byte(text))
	for i := 0; i < h.count; i++ {
		if h.at(i).textHash == hash {
			return true
		}
	}
	return false
}

// MaxSimilarity returns the highest cosine similarity between embedding and
// any stored entry, or 0 for an empty ring.
func (h *History) MaxSimilarity(embedding []float32) float32 {
	var max float32
	for i := 0; i < h.count; i++ {
		if sim := semantic.CosineSimilarity(embedding, h.at(i).embedding); sim > max {
			max = sim
		}
	}
	return max
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return h.count
}

func (h *History) at(i int) *entry {
	idx := (h.head - h.count + i + len(h.entries)) % len(h.entries)
	return &h.entries[idx]
}
