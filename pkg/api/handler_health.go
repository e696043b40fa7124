package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health.
// Reports whether the turn pipeline is wired; memory backends are excluded
// because the service degrades to pass-through chat without them.
func (s *Server) healthHandler(c *echo.Context) error {
	resp := HealthResponse{
		Status:             healthStatusHealthy,
		ContextInitialized: s.orch != nil,
		LLMInitialized:     s.generator != nil,
	}
	if s.generator != nil {
		resp.Model = s.generator.Model()
	}

	httpStatus := http.StatusOK
	if !resp.ContextInitialized || !resp.LLMInitialized {
		resp.Status = healthStatusUnhealthy
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &resp)
}
