package extract

import (
	"regexp"
	"strings"
)

// maxEntities caps how many entities one chunk contributes to the graph.
const maxEntities = 10

var (
	// entityRe matches capitalized phrases of one to four words, e.g.
	// "John Smith" or "New York City".
	entityRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,3})\b`)

	// keywordRe matches capitalized phrases of any length for query-term
	// harvesting.
	keywordRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\b`)
)

// entityStopWords excludes phrases that start with sentence-leading words
// or pronouns, which otherwise match the capitalization pattern at the
// start of every sentence.
var entityStopWords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "Those": {},
	"When": {}, "Where": {}, "What": {}, "Why": {}, "How": {}, "Who": {},
	"We": {}, "It": {}, "He": {}, "She": {}, "They": {}, "You": {},
	"My": {}, "Our": {}, "His": {}, "Her": {}, "Its": {}, "Their": {},
	"If": {}, "But": {}, "And": {}, "Then": {}, "So": {}, "Also": {},
	"Yes": {}, "No": {}, "Not": {}, "Now": {}, "Here": {}, "There": {},
	"Let": {},
}

// queryStopWords excludes filler words from lowercase query terms.
var queryStopWords = map[string]struct{}{
	"about": {}, "tell": {}, "what": {}, "when": {}, "where": {},
	"how": {}, "why": {}, "who": {}, "the": {}, "this": {}, "that": {},
}

// Entities returns the distinct capitalized phrases in text, in order of
// first appearance, capped at maxEntities. Used by the cold path to grow
// the knowledge graph from chunk summaries.
func Entities(text string) []string {
	matches := entityRe.FindAllString(text, -1)

	entities := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, match := range matches {
		first, _, _ := strings.Cut(match, " ")
		if _, stop := entityStopWords[first]; stop {
			continue
		}
		if _, dup := seen[match]; dup {
			continue
		}
		seen[match] = struct{}{}
		entities = append(entities, match)
		if len(entities) == maxEntities {
			break
		}
	}
	return entities
}

// QueryTerms returns search terms for the relational retrieval leg:
// capitalized phrases first, then significant lowercase words. Falls back
// to the whole query when nothing qualifies.
func QueryTerms(text string) []string {
	terms := keywordRe.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		seen[t] = struct{}{}
	}

	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if len(word) <= 3 {
			continue
		}
		if _, stop := queryStopWords[strings.ToLower(word)]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		terms = append(terms, word)
	}

	if len(terms) == 0 && strings.TrimSpace(text) != "" {
		return []string{strings.TrimSpace(text)}
	}
	return terms
}
