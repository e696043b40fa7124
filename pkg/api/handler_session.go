package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/elevend0g/vicw/pkg/queue"
)

// statsHandler handles GET /stats?session_id=.
// Returns context, queue, and worker counters in one snapshot. An unknown
// session id reports a fresh empty window rather than a 404, matching what
// the first turn on that session would start from.
func (s *Server) statsHandler(c *echo.Context) error {
	sess := s.orch.Sessions().GetOrCreate(c.QueryParam("session_id"))

	var health []queue.WorkerHealth
	if s.pool != nil {
		health = s.pool.Health()
	}

	return c.JSON(http.StatusOK, &StatsResponse{
		Context: sess.Stats(),
		Queue:   s.queue.Stats(),
		Worker:  aggregateWorkerStats(health),
	})
}

// resetHandler handles POST /reset.
// Clears the session's live window and echo history. External memory is
// untouched, so prior conversation remains retrievable.
func (s *Server) resetHandler(c *echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}

	sess := s.orch.Sessions().GetOrCreate(req.SessionID)
	sess.Reset()

	return c.JSON(http.StatusOK, &ResetResponse{
		Status:    "success",
		SessionID: sess.ID,
		Message:   "live context cleared; external memory retained",
	})
}
