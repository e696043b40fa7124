package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	t.Run("fully wired server is healthy", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)

		c, rec := jsonContext(http.MethodGet, "/health", "")
		require.NoError(t, ts.srv.healthHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, healthStatusHealthy, resp.Status)
		assert.True(t, resp.ContextInitialized)
		assert.True(t, resp.LLMInitialized)
		assert.Equal(t, "scripted", resp.Model)
	})

	t.Run("missing pipeline reports unhealthy", func(t *testing.T) {
		s := &Server{}

		c, rec := jsonContext(http.MethodGet, "/health", "")
		require.NoError(t, s.healthHandler(c))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, healthStatusUnhealthy, resp.Status)
		assert.False(t, resp.ContextInitialized)
		assert.False(t, resp.LLMInitialized)
		assert.Empty(t, resp.Model)
	})
}
