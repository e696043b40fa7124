package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/llm"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/session"
)

func TestChatHandler(t *testing.T) {
	t.Run("returns the turn result", func(t *testing.T) {
		ts := newTestServer(t, []string{"The gates are holding."}, nil)

		c, rec := jsonContext(http.MethodPost, "/chat", `{"message":"How is the dam?"}`)
		require.NoError(t, ts.srv.chatHandler(c))
		require.Equal(t, http.StatusOK, rec.Code)

		var result session.TurnResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "The gates are holding.", result.Response)
		assert.Greater(t, result.TokensInContext, 0)
		assert.Zero(t, result.RAGItemsInjected)
		assert.False(t, result.Timestamp.IsZero())
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)

		c, _ := jsonContext(http.MethodPost, "/chat", `{"message":""}`)
		httpError(t, ts.srv.chatHandler(c), http.StatusBadRequest, "message must not be empty")
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		ts := newTestServer(t, []string{"unused"}, nil)

		c, _ := jsonContext(http.MethodPost, "/chat", `{"message":`)
		httpError(t, ts.srv.chatHandler(c), http.StatusBadRequest, "invalid request body")
	})

	t.Run("omitted use_rag keeps retrieval on", func(t *testing.T) {
		ts := newTestServer(t, []string{"Noted."}, nil)
		seedMemory(t, ts, "reservoir levels", "Reservoir levels peaked in March.")

		c, rec := jsonContext(http.MethodPost, "/chat", `{"message":"reservoir levels"}`)
		require.NoError(t, ts.srv.chatHandler(c))

		var result session.TurnResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result.RAGItemsInjected)

		prompt := ts.gen.call(0)
		require.Len(t, prompt, 3)
		assert.Equal(t, models.RoleRAG, prompt[1].Role)
	})

	t.Run("use_rag false skips retrieval", func(t *testing.T) {
		ts := newTestServer(t, []string{"Noted."}, nil)
		seedMemory(t, ts, "reservoir levels", "Reservoir levels peaked in March.")

		c, rec := jsonContext(http.MethodPost, "/chat", `{"message":"reservoir levels","use_rag":false}`)
		require.NoError(t, ts.srv.chatHandler(c))

		var result session.TurnResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Zero(t, result.RAGItemsInjected)
		require.Len(t, ts.gen.call(0), 2)
	})

	t.Run("session id scopes the conversation", func(t *testing.T) {
		ts := newTestServer(t, []string{"First answer.", "Second answer."}, nil)

		c, _ := jsonContext(http.MethodPost, "/chat", `{"message":"hello","session_id":"alpha"}`)
		require.NoError(t, ts.srv.chatHandler(c))
		c, _ = jsonContext(http.MethodPost, "/chat", `{"message":"hello","session_id":"beta"}`)
		require.NoError(t, ts.srv.chatHandler(c))

		alpha := ts.srv.orch.Sessions().Get("alpha")
		require.NotNil(t, alpha)
		assert.Equal(t, 2, alpha.Stats().MessageCount)
		beta := ts.srv.orch.Sessions().Get("beta")
		require.NotNil(t, beta)
		assert.Equal(t, 2, beta.Stats().MessageCount)
	})

	t.Run("generation failure maps to bad gateway", func(t *testing.T) {
		ts := newTestServer(t, nil, nil)
		ts.gen.err = errors.New("connection refused")

		c, _ := jsonContext(http.MethodPost, "/chat", `{"message":"hello"}`)
		httpError(t, ts.srv.chatHandler(c), http.StatusBadGateway, "LLM generation failed")
	})

	t.Run("permanent rejection maps to bad gateway", func(t *testing.T) {
		ts := newTestServer(t, nil, nil)
		ts.gen.err = fmt.Errorf("status 401: %w", llm.ErrPermanent)

		c, _ := jsonContext(http.MethodPost, "/chat", `{"message":"hello"}`)
		httpError(t, ts.srv.chatHandler(c), http.StatusBadGateway, "LLM rejected the request")
	})

	t.Run("timeout maps to gateway timeout", func(t *testing.T) {
		ts := newTestServer(t, nil, nil)
		ts.gen.err = fmt.Errorf("completion: %w", context.DeadlineExceeded)

		c, _ := jsonContext(http.MethodPost, "/chat", `{"message":"hello"}`)
		httpError(t, ts.srv.chatHandler(c), http.StatusGatewayTimeout, "timed out")
	})
}
