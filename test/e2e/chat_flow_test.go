package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asMap narrows a decoded JSON value to an object.
func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected JSON object, got %T", v)
	return m
}

func TestChatSessionLifecycle(t *testing.T) {
	app := NewTestApp(t, WithReplies(
		"The export job is stuck on a schema lock.",
		"Restarting the worker released the lock.",
	))

	t.Run("health reports ready", func(t *testing.T) {
		health := app.Health(t)
		assert.Equal(t, "healthy", health["status"])
		assert.Equal(t, true, health["context_initialized"])
		assert.Equal(t, true, health["llm_initialized"])
		assert.Equal(t, "scripted-e2e", health["model"])
	})

	t.Run("first turn answers and grows the window", func(t *testing.T) {
		reply := app.Chat(t, "support", "Why is the nightly export stuck?")
		assert.Equal(t, "The export job is stuck on a schema lock.", reply["response"])
		assert.Greater(t, reply["tokens_in_context"], float64(0))
		assert.Equal(t, float64(0), reply["rag_items_injected"], "empty memory should inject nothing")
		assert.NotEmpty(t, reply["timestamp"])
	})

	t.Run("stats reflect the conversation", func(t *testing.T) {
		stats := app.Stats(t, "support")

		contextStats := asMap(t, stats["context"])
		assert.Equal(t, float64(2), contextStats["message_count"])
		assert.Greater(t, contextStats["current_tokens"], float64(0))
		assert.Equal(t, float64(0), contextStats["offload_count"])

		queueStats := asMap(t, stats["queue"])
		assert.Equal(t, float64(0), queueStats["enqueued_total"])

		workerStats := asMap(t, stats["worker"])
		assert.Equal(t, true, workerStats["is_running"])
	})

	t.Run("second turn keeps accumulating", func(t *testing.T) {
		first := asMap(t, app.Stats(t, "support")["context"])["current_tokens"].(float64)

		reply := app.Chat(t, "support", "What fixed it?")
		assert.Equal(t, "Restarting the worker released the lock.", reply["response"])
		assert.Greater(t, reply["tokens_in_context"], first)
	})

	t.Run("reset clears the live window", func(t *testing.T) {
		result := app.Reset(t, "support")
		assert.Equal(t, "success", result["status"])
		assert.Equal(t, "support", result["session_id"])

		contextStats := asMap(t, app.Stats(t, "support")["context"])
		assert.Equal(t, float64(0), contextStats["message_count"])
		assert.Equal(t, float64(0), contextStats["current_tokens"])
	})

	t.Run("other sessions are untouched by reset", func(t *testing.T) {
		app.Chat(t, "billing", "Hello from billing.")
		app.Reset(t, "support")

		contextStats := asMap(t, app.Stats(t, "billing")["context"])
		assert.Equal(t, float64(2), contextStats["message_count"])
	})
}
