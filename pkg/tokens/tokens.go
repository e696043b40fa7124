// Package tokens provides the approximate token estimator used for context
// budgeting. The estimate only has to be deterministic and monotone in input
// length; the budget thresholds absorb the approximation error.
package tokens

// CharsPerToken is the average number of characters per token for typical
// English text. Used for the ceiling-division estimate below.
const CharsPerToken = 4

// MessageOverhead is the fixed per-message cost added for role and framing
// tokens that the content-only estimate does not see.
const MessageOverhead = 4

// Estimate returns the approximate token count of s.
// Empty input costs zero; any non-empty input costs at least one token.
func Estimate(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + CharsPerToken - 1) / CharsPerToken
}

// EstimateMessage returns the token cost of a single message with the given
// content, including the per-message overhead.
func EstimateMessage(content string) int {
	return Estimate(content) + MessageOverhead
}
