package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// chatHandler handles POST /chat.
// Runs one user message through the full turn pipeline and returns the
// accepted assistant response with context usage counters.
func (s *Server) chatHandler(c *echo.Context) error {
	// 1. Bind and validate the request
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message must not be empty")
	}

	// 2. An omitted use_rag means retrieval stays on
	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}

	// 3. Run the turn; the orchestrator maps an empty session id to the
	// default session
	result, err := s.orch.Turn(c.Request().Context(), req.SessionID, req.Message, useRAG)
	if err != nil {
		return mapTurnError(err)
	}

	return c.JSON(http.StatusOK, &result)
}
