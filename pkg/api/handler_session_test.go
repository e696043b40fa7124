package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/models"
)

func TestStatsHandler(t *testing.T) {
	t.Run("fresh session reports an empty window", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)

		c, rec := jsonContext(http.MethodGet, "/stats", "")
		require.NoError(t, ts.srv.statsHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var stats StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, ts.cfg.Context.MaxTokens, stats.Context.MaxTokens)
		assert.Zero(t, stats.Context.MessageCount)
		assert.Zero(t, stats.Context.CurrentTokens)
		assert.Equal(t, ts.cfg.Queue.MaxSize, stats.Queue.MaxSize)
		assert.False(t, stats.Worker.IsRunning)
		assert.Zero(t, stats.Worker.ProcessedCount)
	})

	t.Run("stats reflect a completed turn", func(t *testing.T) {
		ts := newTestServer(t, []string{"Holding steady."}, nil)

		_, err := ts.srv.orch.Turn(context.Background(), "ops", "How are the gates?", false)
		require.NoError(t, err)

		c, rec := jsonContext(http.MethodGet, "/stats?session_id=ops", "")
		require.NoError(t, ts.srv.statsHandler(c))

		var stats StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.Context.MessageCount)
		assert.Greater(t, stats.Context.CurrentTokens, 0)
		assert.Greater(t, stats.Context.PressurePct, 0.0)
	})

	t.Run("queue counters are included", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)
		require.True(t, ts.queue.Enqueue(models.NewOffloadJob("default", "", nil)))

		c, rec := jsonContext(http.MethodGet, "/stats", "")
		require.NoError(t, ts.srv.statsHandler(c))

		var stats StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 1, stats.Queue.CurrentSize)
		assert.Equal(t, 1, stats.Queue.EnqueuedTotal)
	})

	t.Run("stats tolerate a server without a worker pool", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)
		ts.srv.pool = nil

		c, rec := jsonContext(http.MethodGet, "/stats", "")
		require.NoError(t, ts.srv.statsHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestResetHandler(t *testing.T) {
	t.Run("clears the live window and keeps external memory", func(t *testing.T) {
		ts := newTestServer(t, []string{"Noted."}, nil)
		seedMemory(t, ts, "turbine schedule", "Turbine maintenance is planned for May.")

		_, err := ts.srv.orch.Turn(context.Background(), "", "Remember the schedule.", false)
		require.NoError(t, err)

		c, rec := jsonContext(http.MethodPost, "/reset", `{"session_id":"default"}`)
		require.NoError(t, ts.srv.resetHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ResetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, "default", resp.SessionID)

		sess := ts.srv.orch.Sessions().Get("default")
		require.NotNil(t, sess)
		assert.Zero(t, sess.Stats().MessageCount)

		ids, err := ts.chunks.RecentChunkIDs(context.Background(), 10)
		require.NoError(t, err)
		assert.NotEmpty(t, ids, "reset must not touch the chunk store")
	})

	t.Run("empty body resets the default session", func(t *testing.T) {
		ts := newTestServer(t, []string{"Noted."}, nil)

		_, err := ts.srv.orch.Turn(context.Background(), "", "hello", false)
		require.NoError(t, err)

		c, rec := jsonContext(http.MethodPost, "/reset", `{}`)
		require.NoError(t, ts.srv.resetHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)

		sess := ts.srv.orch.Sessions().Get("default")
		require.NotNil(t, sess)
		assert.Zero(t, sess.Stats().MessageCount)
	})

	t.Run("resetting an unknown session is idempotent", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)

		c, rec := jsonContext(http.MethodPost, "/reset", `{"session_id":"ghost"}`)
		require.NoError(t, ts.srv.resetHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ResetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ghost", resp.SessionID)
	})
}
