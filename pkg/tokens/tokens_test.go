package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"empty", "", 0},
		{"single char", "a", 1},
		{"exactly one token", "abcd", 1},
		{"one over boundary", "abcde", 2},
		{"two tokens", "abcdefgh", 2},
		{"short sentence", "hello world!", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(tt.input))
		})
	}
}

func TestEstimateMonotone(t *testing.T) {
	// Growing the input never decreases the estimate.
	prev := 0
	s := ""
	for i := 0; i < 64; i++ {
		s += "x"
		cur := Estimate(s)
		assert.GreaterOrEqual(t, cur, prev, "estimate must be monotone in length")
		prev = cur
	}
}

func TestEstimateDeterministic(t *testing.T) {
	input := strings.Repeat("the quick brown fox ", 50)
	first := Estimate(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Estimate(input))
	}
}

func TestEstimateMessage(t *testing.T) {
	assert.Equal(t, MessageOverhead, EstimateMessage(""))
	assert.Equal(t, 1+MessageOverhead, EstimateMessage("hi"))
}
