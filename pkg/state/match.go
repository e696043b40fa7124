package state

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

const (
	// maxEditDistance is the character-level slack for treating two
	// descriptions as the same state.
	maxEditDistance = 2

	// minTokenSetRatio is the word-overlap score above which descriptions
	// collapse even when their edit distance is large.
	minTokenSetRatio = 0.85
)

var articles = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
}

// normalize lowercases a description and strips articles so that phrasing
// variants compare equal. Matching only; stored descriptions keep their
// articles.
func normalize(desc string) string {
	fields := strings.Fields(strings.ToLower(desc))
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := articles[f]; skip {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// matches reports whether two descriptions refer to the same state.
func matches(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return na == nb
	}
	if levenshtein.Distance(na, nb, nil) <= maxEditDistance {
		return true
	}
	return tokenSetRatio(na, nb) >= minTokenSetRatio
}

// tokenSetRatio scores word-level overlap ignoring order and repetition.
// The shared tokens are compared against each side's full token set, so a
// description whose words are a subset of the other's scores 1.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var shared, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(shared)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(shared, " ")
	withA := joinNonEmpty(base, onlyA)
	withB := joinNonEmpty(base, onlyB)

	return max(
		levenshtein.Similarity(base, withA, nil),
		levenshtein.Similarity(base, withB, nil),
		levenshtein.Similarity(withA, withB, nil),
	)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(s) {
		set[f] = struct{}{}
	}
	return set
}

func joinNonEmpty(base string, extra []string) string {
	if len(extra) == 0 {
		return base
	}
	if base == "" {
		return strings.Join(extra, " ")
	}
	return base + " " + strings.Join(extra, " ")
}
