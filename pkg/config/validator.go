package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps all validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks cross-field constraints. Called by LoadFromEnv; exported
// so manually built configs (tests, embedding) get the same checks.
func (c *Config) Validate() error {
	ctx := c.Context
	if ctx.MaxTokens <= 0 {
		return invalid("max context tokens must be positive, got %d", ctx.MaxTokens)
	}
	for name, v := range map[string]float64{
		"offload threshold":    ctx.OffloadThreshold,
		"target after relief":  ctx.TargetAfterRelief,
		"hysteresis threshold": ctx.HysteresisThreshold,
	} {
		if v <= 0 || v > 1 {
			return invalid("%s must be in (0, 1], got %v", name, v)
		}
	}
	if !(ctx.TargetAfterRelief < ctx.HysteresisThreshold && ctx.HysteresisThreshold < ctx.OffloadThreshold) {
		return invalid("thresholds must be ordered target < hysteresis < trigger, got %v < %v < %v",
			ctx.TargetAfterRelief, ctx.HysteresisThreshold, ctx.OffloadThreshold)
	}

	if c.Queue.MaxSize <= 0 {
		return invalid("queue max size must be positive, got %d", c.Queue.MaxSize)
	}
	if c.Queue.BatchSize <= 0 {
		return invalid("queue batch size must be positive, got %d", c.Queue.BatchSize)
	}
	if c.Queue.Workers <= 0 {
		return invalid("worker count must be positive, got %d", c.Queue.Workers)
	}

	if c.Embedding.Dimension <= 0 {
		return invalid("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}

	if c.LLM.MaxRetries < 0 {
		return invalid("llm max retries must be non-negative, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.Timeout <= 0 {
		return invalid("llm timeout must be positive, got %v", c.LLM.Timeout)
	}

	if c.RAG.TopKSemantic < 0 || c.RAG.TopKRelational < 0 {
		return invalid("rag result limits must be non-negative")
	}

	eg := c.EchoGuard
	if eg.HistorySize <= 0 {
		return invalid("echo history size must be positive, got %d", eg.HistorySize)
	}
	if eg.SimilarityThreshold <= 0 || eg.SimilarityThreshold > 1 {
		return invalid("echo similarity threshold must be in (0, 1], got %v", eg.SimilarityThreshold)
	}
	if eg.MaxRetries < 0 {
		return invalid("echo max retries must be non-negative, got %d", eg.MaxRetries)
	}

	st := c.State
	for name, v := range map[string]int{
		"goal limit":       st.LimitGoal,
		"task limit":       st.LimitTask,
		"decision limit":   st.LimitDecision,
		"fact limit":       st.LimitFact,
		"recent completed": st.RecentCompleted,
	} {
		if v < 0 {
			return invalid("state %s must be non-negative, got %d", name, v)
		}
	}
	if st.BoredomThreshold <= 0 {
		return invalid("boredom threshold must be positive, got %d", st.BoredomThreshold)
	}

	return nil
}
