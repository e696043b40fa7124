package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/elevend0g/vicw/pkg/session"
	"github.com/elevend0g/vicw/pkg/tokens"
)

// streamSegmentRunes is how much completed text each synthetic SSE chunk
// carries. The model is not actually streamed; the shim replays the accepted
// response in pieces so streaming clients render progressively.
const streamSegmentRunes = 48

// modelInfo is one entry in the GET /v1/models listing.
type modelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// modelListResponse is returned by GET /v1/models.
type modelListResponse struct {
	Object string      `json:"object"`
	Data   []modelInfo `json:"data"`
}

// listModelsHandler handles GET /v1/models.
// The service fronts exactly one model, so the listing has one entry.
func (s *Server) listModelsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, &modelListResponse{
		Object: "list",
		Data: []modelInfo{{
			ID:      s.generator.Model(),
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "vicw",
		}},
	})
}

// chatCompletionsHandler handles POST /v1/chat/completions.
// Adapter for OpenAI-compatible clients: the last user message runs through
// the turn pipeline and the accepted response comes back in completions
// shape. Clients resend full transcripts every call; the server already
// holds the conversation, so only the newest user turn is consumed.
func (s *Server) chatCompletionsHandler(c *echo.Context) error {
	// 1. Bind and extract the newest user message
	var req openai.ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	userMessage := lastUserMessage(req.Messages)
	if userMessage == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "request contains no user message")
	}

	// 2. Run the turn against the default session with retrieval on
	result, err := s.orch.Turn(c.Request().Context(), session.DefaultID, userMessage, true)
	if err != nil {
		return mapTurnError(err)
	}

	// 3. Answer in the caller's chosen shape
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	model := s.generator.Model()

	if req.Stream {
		return s.streamCompletion(c, id, created, model, result.Response)
	}

	return c.JSON(http.StatusOK, &openai.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index: 0,
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: result.Response,
			},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{
			PromptTokens:     result.TokensInContext,
			CompletionTokens: tokens.Estimate(result.Response),
			TotalTokens:      result.TokensInContext + tokens.Estimate(result.Response),
		},
	})
}

// streamCompletion replays text as server-sent completion chunks followed by
// the [DONE] sentinel.
func (s *Server) streamCompletion(c *echo.Context, id string, created int64, model, text string) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	chunk := openai.ChatCompletionStreamResponse{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []openai.ChatCompletionStreamChoice{{
			Delta: openai.ChatCompletionStreamChoiceDelta{Role: openai.ChatMessageRoleAssistant},
		}},
	}
	if err := writeStreamChunk(c, chunk); err != nil {
		return err
	}

	for _, segment := range streamSegments(text, streamSegmentRunes) {
		chunk.Choices[0].Delta = openai.ChatCompletionStreamChoiceDelta{Content: segment}
		if err := writeStreamChunk(c, chunk); err != nil {
			return err
		}
	}

	chunk.Choices[0].Delta = openai.ChatCompletionStreamChoiceDelta{}
	chunk.Choices[0].FinishReason = openai.FinishReasonStop
	if err := writeStreamChunk(c, chunk); err != nil {
		return err
	}

	_, err := fmt.Fprint(c.Response(), "data: [DONE]\n\n")
	flush(c)
	return err
}

func writeStreamChunk(c *echo.Context, chunk openai.ChatCompletionStreamResponse) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", payload); err != nil {
		return err
	}
	flush(c)
	return nil
}

func flush(c *echo.Context) {
	var w http.ResponseWriter = c.Response()
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// lastUserMessage walks the transcript backwards for the newest user turn,
// flattening multi-part content to its text parts.
func lastUserMessage(messages []openai.ChatCompletionMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != openai.ChatMessageRoleUser {
			continue
		}
		if messages[i].Content != "" {
			return messages[i].Content
		}
		var parts []string
		for _, part := range messages[i].MultiContent {
			if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return ""
}

// streamSegments cuts text into rune-aligned pieces of at most size runes.
func streamSegments(text string, size int) []string {
	runes := []rune(text)
	var segments []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}
