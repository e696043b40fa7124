package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/echoguard"
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

// scriptedGenerator replays canned responses and records every prompt it
// was handed. The last reply repeats once the script runs out.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	calls   [][]models.Message
	err     error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt []models.Message) (llm.Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return llm.Completion{}, g.err
	}
	g.calls = append(g.calls, append([]models.Message(nil), prompt...))
	i := len(g.calls) - 1
	if i >= len(g.replies) {
		i = len(g.replies) - 1
	}
	return llm.Completion{Text: g.replies[i], Latency: time.Millisecond}, nil
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func (g *scriptedGenerator) call(i int) []models.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[i]
}

// testServer assembles a full server on in-memory backends.
type testServer struct {
	srv      *Server
	cfg      *config.Config
	gen      *scriptedGenerator
	queue    *queue.Queue
	chunks   *storage.MemoryChunkStore
	vectors  *storage.MemoryVectorIndex
	embedder *semantic.HashEmbedder
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, replies []string, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Context.MaxTokens = 2000
	if mutate != nil {
		mutate(cfg)
	}

	registry := prometheus.NewRegistry()
	ts := &testServer{
		cfg:      cfg,
		gen:      &scriptedGenerator{replies: replies},
		queue:    queue.New(cfg.Queue.MaxSize),
		chunks:   storage.NewMemoryChunkStore(),
		vectors:  storage.NewMemoryVectorIndex(256),
		embedder: semantic.NewHashEmbedder(256),
		metrics:  metrics.NewWith(registry),
		registry: registry,
	}

	graph := storage.NewMemoryGraph()
	latch := &queue.Latch{}
	manager := session.NewManager(cfg.Server.SystemPrompt, cfg.Context, cfg.EchoGuard.HistorySize)
	orch := session.NewOrchestrator(
		manager,
		retrieval.NewCoordinator(ts.chunks, ts.vectors, graph, ts.embedder, ts.metrics, cfg.RAG),
		state.NewTracker(graph, cfg.State),
		echoguard.NewGuard(ts.embedder, cfg.EchoGuard),
		ts.gen,
		ts.queue,
		latch,
		ts.metrics,
	)

	processor := semantic.NewManager(ts.chunks, ts.vectors, graph, ts.embedder, nil, nil)
	pool := queue.NewWorkerPool(ts.queue, latch, processor, ts.metrics, cfg.Queue)

	ts.srv = NewServer(cfg, orch, ts.gen, ts.queue, pool, ts.metrics)
	ts.srv.SetGatherer(registry)
	return ts
}

// seedMemory stores one chunk whose vector matches query exactly.
func seedMemory(t *testing.T, ts *testServer, query, summary string) {
	t.Helper()
	ctx := context.Background()

	vec, err := ts.embedder.Embed(ctx, query)
	require.NoError(t, err)

	chunk := models.Chunk{
		ChunkID:   models.NewChunkID(),
		FullText:  summary,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, ts.chunks.PutChunk(ctx, chunk))
	require.NoError(t, ts.vectors.Upsert(ctx, chunk.ChunkID, vec, storage.VectorPayload{
		Summary:   summary,
		CreatedAt: chunk.CreatedAt,
	}))
}

// jsonContext builds an echo context carrying a JSON request body.
func jsonContext(method, target, body string) (*echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// httpError asserts the handler returned an echo HTTP error with the given
// status and message fragment.
func httpError(t *testing.T, err error, code int, fragment string) {
	t.Helper()
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected echo.HTTPError, got %T", err)
	assert.Equal(t, code, he.Code)
	assert.Contains(t, he.Message, fragment)
}

func TestServerRouting(t *testing.T) {
	ts := newTestServer(t, []string{"The intake valve is clear."}, nil)

	t.Run("routes are registered", func(t *testing.T) {
		for _, tc := range []struct {
			method string
			target string
			body   string
		}{
			{http.MethodPost, "/chat", `{"message":"status?"}`},
			{http.MethodGet, "/health", ""},
			{http.MethodGet, "/stats", ""},
			{http.MethodPost, "/reset", `{}`},
			{http.MethodGet, "/v1/models", ""},
			{http.MethodGet, "/metrics", ""},
		} {
			var req *http.Request
			if tc.body == "" {
				req = httptest.NewRequest(tc.method, tc.target, nil)
			} else {
				req = httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			rec := httptest.NewRecorder()
			ts.srv.echoServer.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, "%s %s", tc.method, tc.target)
		}
	})

	t.Run("metrics endpoint serves the exposition format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		ts.srv.echoServer.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "vicw_offloads_total")
		assert.Contains(t, rec.Body.String(), "vicw_offload_queue_depth")
	})
}

func TestValidateWiring(t *testing.T) {
	t.Run("complete wiring passes", func(t *testing.T) {
		ts := newTestServer(t, []string{"ok"}, nil)
		require.NoError(t, ts.srv.ValidateWiring())
	})

	t.Run("missing pieces are named", func(t *testing.T) {
		err := (&Server{}).ValidateWiring()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config")

		err = (&Server{cfg: config.Default()}).ValidateWiring()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "orchestrator")
	})
}
