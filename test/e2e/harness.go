// Package e2e boots the full service on in-memory backends and exercises it
// through the real HTTP surface: routing, middleware, the turn pipeline, and
// the cold-path workers all run as they do in production.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/api"
	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/echoguard"
	"github.com/elevend0g/vicw/pkg/extract"
	"github.com/elevend0g/vicw/pkg/llm"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/queue"
	"github.com/elevend0g/vicw/pkg/retrieval"
	"github.com/elevend0g/vicw/pkg/semantic"
	"github.com/elevend0g/vicw/pkg/session"
	"github.com/elevend0g/vicw/pkg/state"
	"github.com/elevend0g/vicw/pkg/storage"
)

// ScriptedLLM replays canned responses in order, repeating the last one when
// the script runs out.
type ScriptedLLM struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func NewScriptedLLM(replies ...string) *ScriptedLLM {
	return &ScriptedLLM{replies: replies}
}

func (g *ScriptedLLM) Generate(_ context.Context, _ []models.Message) (llm.Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.replies) == 0 {
		return llm.Completion{}, fmt.Errorf("scripted llm has no replies")
	}
	i := g.calls
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	g.calls++
	return llm.Completion{Text: g.replies[i], Latency: time.Millisecond}, nil
}

func (g *ScriptedLLM) Model() string { return "scripted-e2e" }

// Calls reports how many completions were requested.
func (g *ScriptedLLM) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// TestApp is a fully wired service listening on a random local port.
type TestApp struct {
	Config  *config.Config
	LLM     *ScriptedLLM
	Queue   *queue.Queue
	Chunks  *storage.MemoryChunkStore
	Vectors *storage.MemoryVectorIndex
	Graph   *storage.MemoryGraph
	Server  *api.Server
	BaseURL string

	t *testing.T
}

type appOptions struct {
	replies []string
	mutate  func(*config.Config)
}

type Option func(*appOptions)

// WithReplies scripts the LLM responses, in order.
func WithReplies(replies ...string) Option {
	return func(o *appOptions) { o.replies = replies }
}

// WithConfig adjusts the default configuration before wiring.
func WithConfig(mutate func(*config.Config)) Option {
	return func(o *appOptions) { o.mutate = mutate }
}

// NewTestApp assembles the whole service on in-memory backends, starts the
// worker pool and HTTP server, and registers cleanup in reverse order.
func NewTestApp(t *testing.T, opts ...Option) *TestApp {
	t.Helper()

	options := appOptions{replies: []string{"Acknowledged."}}
	for _, opt := range opts {
		opt(&options)
	}

	cfg := config.Default()
	cfg.Context.MaxTokens = 2000
	cfg.Queue.IdleSleep = 10 * time.Millisecond
	cfg.Queue.PauseSleep = 5 * time.Millisecond
	if options.mutate != nil {
		options.mutate(cfg)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewWith(registry)

	app := &TestApp{
		Config:  cfg,
		LLM:     NewScriptedLLM(options.replies...),
		Queue:   queue.New(cfg.Queue.MaxSize),
		Chunks:  storage.NewMemoryChunkStore(),
		Vectors: storage.NewMemoryVectorIndex(cfg.Embedding.Dimension),
		Graph:   storage.NewMemoryGraph(),
		t:       t,
	}

	embedder := semantic.NewHashEmbedder(cfg.Embedding.Dimension)
	latch := &queue.Latch{}
	tracker := state.NewTracker(app.Graph, cfg.State)
	engine := extract.NewEngine(config.BuiltinCatalog())

	processor := semantic.NewManager(app.Chunks, app.Vectors, app.Graph, embedder, engine, tracker)
	pool := queue.NewWorkerPool(app.Queue, latch, processor, m, cfg.Queue)
	pool.Start(context.Background())

	sessions := session.NewManager(cfg.Server.SystemPrompt, cfg.Context, cfg.EchoGuard.HistorySize)
	orch := session.NewOrchestrator(
		sessions,
		retrieval.NewCoordinator(app.Chunks, app.Vectors, app.Graph, embedder, m, cfg.RAG),
		tracker,
		echoguard.NewGuard(embedder, cfg.EchoGuard),
		app.LLM,
		app.Queue,
		latch,
		m,
	)

	app.Server = api.NewServer(cfg, orch, app.LLM, app.Queue, pool, m)
	app.Server.SetGatherer(registry)
	require.NoError(t, app.Server.ValidateWiring())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Server.StartWithListener(ln)
	}()
	app.BaseURL = "http://" + ln.Addr().String()

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Server.Shutdown(shutdownCtx)
		pool.Stop()
	})
	return app
}

// Chat posts one message to the given session and returns the decoded body.
func (app *TestApp) Chat(t *testing.T, sessionID, message string) map[string]any {
	t.Helper()
	return app.postJSON(t, "/chat", map[string]any{
		"message":    message,
		"session_id": sessionID,
	}, http.StatusOK)
}

// Ingest posts a document and returns the decoded body.
func (app *TestApp) Ingest(t *testing.T, document string, metadata map[string]string) map[string]any {
	t.Helper()
	return app.postJSON(t, "/ingest", map[string]any{
		"document": document,
		"metadata": metadata,
	}, http.StatusOK)
}

// Stats fetches /stats for one session.
func (app *TestApp) Stats(t *testing.T, sessionID string) map[string]any {
	t.Helper()
	path := "/stats"
	if sessionID != "" {
		path += "?session_id=" + sessionID
	}
	return app.getJSON(t, path, http.StatusOK)
}

// Reset posts /reset for one session.
func (app *TestApp) Reset(t *testing.T, sessionID string) map[string]any {
	t.Helper()
	return app.postJSON(t, "/reset", map[string]any{"session_id": sessionID}, http.StatusOK)
}

// Health fetches /health.
func (app *TestApp) Health(t *testing.T) map[string]any {
	t.Helper()
	return app.getJSON(t, "/health", http.StatusOK)
}

// WaitForProcessed blocks until the cold path has processed n jobs total.
func (app *TestApp) WaitForProcessed(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return app.Queue.Stats().ProcessedTotal >= n
	}, 5*time.Second, 20*time.Millisecond, "cold path never processed %d jobs", n)
}

func (app *TestApp) postJSON(t *testing.T, path string, body any, expectedStatus int) map[string]any {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(app.BaseURL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, resp.StatusCode, "POST %s: %s", path, strings.TrimSpace(string(raw)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func (app *TestApp) getJSON(t *testing.T, path string, expectedStatus int) map[string]any {
	t.Helper()

	resp, err := http.Get(app.BaseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, expectedStatus, resp.StatusCode, "GET %s: %s", path, strings.TrimSpace(string(raw)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}
