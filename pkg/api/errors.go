package api

import (
	"context"
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/elevend0g/vicw/pkg/llm"
)

// mapTurnError translates a failed turn into the HTTP error the chat
// endpoints return. Generation failures are gateway errors: the upstream
// model, not this service, failed.
func mapTurnError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "LLM request timed out")
	case errors.Is(err, llm.ErrPermanent):
		return echo.NewHTTPError(http.StatusBadGateway, "LLM rejected the request: "+err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "LLM generation failed: "+err.Error())
	}
}
