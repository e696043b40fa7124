package semantic

import (
	"regexp"
	"strings"

	"github.com/elevend0g/vicw/pkg/tokens"
)

const (
	// passthroughChars is the size below which text is its own summary.
	passthroughChars = 100

	// leadSentences and tailSentences select the extractive window: the
	// opening of the chunk plus its most recent sentence.
	leadSentences = 2
	tailSentences = 1

	// maxSummaryTokens bounds the summary stored with the chunk and fed
	// to the embedder.
	maxSummaryTokens = 256
)

// elision marks the sentences dropped between the lead and tail.
const elision = "[...]"

// sentenceRe captures sentences together with their terminators.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Summarize produces a deterministic extractive summary of text: the first
// two sentences and the last one, joined, bounded at maxSummaryTokens.
// Texts under passthroughChars are returned unchanged.
func Summarize(text string) string {
	if len(text) < passthroughChars {
		return text
	}

	parts := splitSentences(text)
	summary := text
	if len(parts) > leadSentences+tailSentences {
		picked := make([]string, 0, leadSentences+tailSentences+1)
		picked = append(picked, parts[:leadSentences]...)
		picked = append(picked, elision)
		picked = append(picked, parts[len(parts)-tailSentences:]...)
		summary = strings.Join(picked, " ")
	}
	return truncateTokens(summary, maxSummaryTokens)
}

func splitSentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	parts := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// truncateTokens cuts s at a word boundary so that the result, trailing
// ellipsis included, stays within maxTokens estimated tokens.
func truncateTokens(s string, maxTokens int) string {
	if tokens.Estimate(s) <= maxTokens {
		return s
	}
	limit := maxTokens*tokens.CharsPerToken - len("...")
	cut := s[:limit]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " .,;:") + "..."
}
