// VICW chat server. Keeps the live LLM context inside a fixed token budget
// by offloading older exchanges to external semantic memory, and pulls them
// back through hybrid retrieval.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/elevend0g/vicw/pkg/api"
	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/echoguard"
	"github.com/elevend0g/vicw/pkg/extract"
	"github.com/elevend0g/vicw/pkg/llm"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/queue"
	"github.com/elevend0g/vicw/pkg/retrieval"
	"github.com/elevend0g/vicw/pkg/semantic"
	"github.com/elevend0g/vicw/pkg/session"
	"github.com/elevend0g/vicw/pkg/state"
	"github.com/elevend0g/vicw/pkg/storage"
	"github.com/elevend0g/vicw/pkg/version"
)

// workerShutdownTimeout bounds how long shutdown waits for in-flight offload
// batches before giving up on them.
const workerShutdownTimeout = 10 * time.Second

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	envFile := flag.String("env-file",
		getEnv("ENV_FILE", ".env"),
		"Path to environment file")
	flag.Parse()

	// Load env file; a missing file is fine, the environment wins anyway
	if err := godotenv.Load(*envFile); err != nil {
		slog.Warn("Could not load env file, continuing with existing environment",
			"path", *envFile, "error", err)
	} else {
		slog.Info("Loaded environment", "path", *envFile)
	}

	// 1. Configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting VICW",
		"version", version.GitCommit,
		"http_port", cfg.Server.Port,
		"llm_model", cfg.LLM.Model,
		"max_context_tokens", cfg.Context.MaxTokens)

	ctx := context.Background()

	// 2. Metrics
	m := metrics.New()

	// 3. Memory backends
	chunks, err := storage.NewRedisChunkStore(ctx, cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis chunk store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := chunks.Close(); err != nil {
			slog.Error("Error closing chunk store", "error", err)
		}
	}()
	slog.Info("Connected to Redis chunk store", "addr", cfg.Redis.Addr)

	vectors, err := storage.NewQdrantIndex(ctx, cfg.Qdrant, cfg.Embedding.Dimension)
	if err != nil {
		slog.Error("Failed to connect to Qdrant vector index", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := vectors.Close(); err != nil {
			slog.Error("Error closing vector index", "error", err)
		}
	}()
	if err := vectors.EnsureCollection(ctx); err != nil {
		slog.Error("Failed to ensure vector collection", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to Qdrant vector index",
		"host", cfg.Qdrant.Host, "collection", cfg.Qdrant.Collection)

	graph, err := storage.NewNeo4jGraph(ctx, cfg.Neo4j)
	if err != nil {
		slog.Error("Failed to connect to Neo4j graph", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graph.Close(ctx); err != nil {
			slog.Error("Error closing graph", "error", err)
		}
	}()
	if err := graph.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to ensure graph schema", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to Neo4j graph", "uri", cfg.Neo4j.URI)

	// 4. Embedding and completion clients
	embedder := semantic.NewOpenAIEmbedder(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM, m)

	// 5. State tracking
	catalog, err := config.LoadCatalog(cfg.State.CatalogPath)
	if err != nil {
		slog.Error("Failed to load state catalog", "error", err)
		os.Exit(1)
	}
	engine := extract.NewEngine(catalog)
	tracker := state.NewTracker(graph, cfg.State)

	// 6. Offload queue and cold-path workers
	jobQueue := queue.New(cfg.Queue.MaxSize)
	latch := &queue.Latch{}
	processor := semantic.NewManager(chunks, vectors, graph, embedder, engine, tracker)
	pool := queue.NewWorkerPool(jobQueue, latch, processor, m, cfg.Queue)
	pool.Start(ctx)

	// 7. Sessions and the turn orchestrator
	sessions := session.NewManager(cfg.Server.SystemPrompt, cfg.Context, cfg.EchoGuard.HistorySize)
	retriever := retrieval.NewCoordinator(chunks, vectors, graph, embedder, m, cfg.RAG)
	guard := echoguard.NewGuard(embedder, cfg.EchoGuard)
	orch := session.NewOrchestrator(sessions, retriever, tracker, guard, llmClient, jobQueue, latch, m)

	// 8. HTTP server
	server := api.NewServer(cfg, orch, llmClient, jobQueue, pool, m)
	if err := server.ValidateWiring(); err != nil {
		slog.Error("Server wiring incomplete", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		slog.Info("HTTP server listening", "addr", addr)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("VICW started successfully", "workers", cfg.Queue.Workers)

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown: workers first so queued memories get persisted,
	// then the HTTP server
	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-time.After(workerShutdownTimeout):
		slog.Warn("Worker shutdown timeout exceeded, queued jobs may be lost",
			"remaining", jobQueue.Len())
	}

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
