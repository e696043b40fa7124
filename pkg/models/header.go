package models

import "strings"

// PinnedHeader is the immutable prompt prefix for a session. It survives
// every shed. Either structured fields or a plain Text block may be used;
// when Text is set it passes through verbatim and the fields are ignored.
type PinnedHeader struct {
	Text        string   `json:"text,omitempty"`
	Goals       []string `json:"goals,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Definitions []string `json:"definitions,omitempty"`
	Plan        []string `json:"plan,omitempty"`
}

// Render produces the header content placed at the top of every prompt.
func (h PinnedHeader) Render() string {
	if h.Text != "" {
		return h.Text
	}
	if len(h.Goals) == 0 && len(h.Constraints) == 0 && len(h.Definitions) == 0 && len(h.Plan) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("[PINNED STATE]")
	writeSection(&b, "Goals", h.Goals)
	writeSection(&b, "Constraints", h.Constraints)
	writeSection(&b, "Definitions", h.Definitions)
	writeSection(&b, "Plan", h.Plan)
	b.WriteString("\n[END PINNED STATE]")
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(title)
	b.WriteString(":")
	for _, it := range items {
		b.WriteString("\n- ")
		b.WriteString(it)
	}
}
