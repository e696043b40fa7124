// Package api exposes the chat service over HTTP: the chat turn endpoint,
// session stats and reset, document ingestion, an OpenAI-compatible shim,
// and operational endpoints (health, prometheus metrics).
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/llm"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/queue"
	"github.com/elevend0g/vicw/pkg/session"
)

// Server is the HTTP front end over the turn orchestrator and the offload
// pipeline's observability surfaces.
type Server struct {
	cfg       *config.Config
	orch      *session.Orchestrator
	generator llm.Generator
	queue     *queue.Queue
	pool      *queue.WorkerPool
	metrics   *metrics.Metrics

	gatherer   prometheus.Gatherer
	echoServer *echo.Echo
	httpServer *http.Server
}

// NewServer wires the HTTP server. The worker pool and metrics handle may be
// nil; the corresponding stats degrade rather than fail.
func NewServer(cfg *config.Config, orch *session.Orchestrator, generator llm.Generator, q *queue.Queue, pool *queue.WorkerPool, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		orch:      orch,
		generator: generator,
		queue:     q,
		pool:      pool,
		metrics:   m,
		gatherer:  prometheus.DefaultGatherer,
	}

	e := echo.New()
	e.Use(requestLogger())
	s.registerRoutes(e)
	s.echoServer = e
	return s
}

// SetGatherer overrides the metrics gatherer backing GET /metrics. Tests use
// this with the same fresh registry their collectors were created against.
func (s *Server) SetGatherer(g prometheus.Gatherer) {
	s.gatherer = g
}

// ValidateWiring reports the first missing required dependency, so a
// misassembled server fails at startup instead of on the first request.
func (s *Server) ValidateWiring() error {
	switch {
	case s.cfg == nil:
		return fmt.Errorf("api server wiring: config is nil")
	case s.orch == nil:
		return fmt.Errorf("api server wiring: orchestrator is nil")
	case s.generator == nil:
		return fmt.Errorf("api server wiring: llm generator is nil")
	case s.queue == nil:
		return fmt.Errorf("api server wiring: offload queue is nil")
	}
	return nil
}

func (s *Server) registerRoutes(e *echo.Echo) {
	e.POST("/chat", s.chatHandler)
	e.GET("/health", s.healthHandler)
	e.GET("/stats", s.statsHandler)
	e.POST("/reset", s.resetHandler)
	e.POST("/ingest", s.ingestHandler)

	// OpenAI-compatible shim for clients that speak the completions API.
	e.GET("/v1/models", s.listModelsHandler)
	e.POST("/v1/chat/completions", s.chatCompletionsHandler)

	e.GET("/metrics", s.metricsHandler)
}

// metricsHandler serves the prometheus exposition format.
func (s *Server) metricsHandler(c *echo.Context) error {
	h := promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
	h.ServeHTTP(c.Response(), c.Request())
	return nil
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echoServer}
	return s.httpServer.ListenAndServe()
}

// StartWithListener serves on an existing listener. Tests use this with a
// random port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echoServer}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
