package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LoadFromEnv builds the configuration from environment variables layered
// over the built-in defaults, then validates it.
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	var err error
	load := func(key string, set func(string) error) {
		if err != nil {
			return
		}
		val := os.Getenv(key)
		if val == "" {
			return
		}
		if setErr := set(val); setErr != nil {
			err = fmt.Errorf("invalid %s: %w", key, setErr)
		}
	}

	load("HTTP_PORT", setString(&cfg.Server.Port))
	load("SYSTEM_PROMPT", setString(&cfg.Server.SystemPrompt))

	load("MAX_CONTEXT_TOKENS", setInt(&cfg.Context.MaxTokens))
	load("OFFLOAD_THRESHOLD", setFloat64(&cfg.Context.OffloadThreshold))
	load("TARGET_AFTER_RELIEF", setFloat64(&cfg.Context.TargetAfterRelief))
	load("HYSTERESIS_THRESHOLD", setFloat64(&cfg.Context.HysteresisThreshold))

	load("OFFLOAD_QUEUE_MAX", setInt(&cfg.Queue.MaxSize))
	load("COLD_PATH_BATCH_SIZE", setInt(&cfg.Queue.BatchSize))
	load("COLD_PATH_WORKERS", setInt(&cfg.Queue.Workers))
	load("WORKER_IDLE_SLEEP", setDuration(&cfg.Queue.IdleSleep))
	load("WORKER_PAUSE_SLEEP", setDuration(&cfg.Queue.PauseSleep))

	load("REDIS_ADDR", setString(&cfg.Redis.Addr))
	load("REDIS_PASSWORD", setString(&cfg.Redis.Password))
	load("REDIS_DB", setInt(&cfg.Redis.DB))
	load("REDIS_CHUNK_TTL", setDuration(&cfg.Redis.ChunkTTL))

	load("QDRANT_HOST", setString(&cfg.Qdrant.Host))
	load("QDRANT_PORT", setInt(&cfg.Qdrant.Port))
	load("QDRANT_COLLECTION", setString(&cfg.Qdrant.Collection))

	load("NEO4J_URI", setString(&cfg.Neo4j.URI))
	load("NEO4J_USER", setString(&cfg.Neo4j.User))
	load("NEO4J_PASSWORD", setString(&cfg.Neo4j.Password))

	load("BACKEND_TIMEOUT", func(v string) error {
		d, parseErr := time.ParseDuration(v)
		if parseErr != nil {
			return parseErr
		}
		cfg.Redis.Timeout = d
		cfg.Qdrant.Timeout = d
		cfg.Neo4j.Timeout = d
		return nil
	})

	load("EMBEDDING_BASE_URL", setString(&cfg.Embedding.BaseURL))
	load("EMBEDDING_API_KEY", setString(&cfg.Embedding.APIKey))
	load("EMBEDDING_MODEL", setString(&cfg.Embedding.Model))
	load("EMBEDDING_DIMENSION", setInt(&cfg.Embedding.Dimension))

	load("LLM_BASE_URL", setString(&cfg.LLM.BaseURL))
	load("LLM_API_KEY", setString(&cfg.LLM.APIKey))
	load("LLM_MODEL", setString(&cfg.LLM.Model))
	load("LLM_TIMEOUT", setDuration(&cfg.LLM.Timeout))
	load("LLM_MAX_RETRIES", setInt(&cfg.LLM.MaxRetries))
	load("LLM_MAX_TOKENS", setInt(&cfg.LLM.MaxTokens))
	load("LLM_TEMPERATURE", setFloat32(&cfg.LLM.Temperature))

	load("RAG_TOP_K_SEMANTIC", setInt(&cfg.RAG.TopKSemantic))
	load("RAG_TOP_K_RELATIONAL", setInt(&cfg.RAG.TopKRelational))
	load("RAG_SCORE_THRESHOLD", setFloat32(&cfg.RAG.ScoreThreshold))

	load("ECHO_GUARD_ENABLED", setBool(&cfg.EchoGuard.Enabled))
	load("ECHO_HISTORY_SIZE", setInt(&cfg.EchoGuard.HistorySize))
	load("ECHO_SIMILARITY_THRESHOLD", setFloat32(&cfg.EchoGuard.SimilarityThreshold))
	load("ECHO_MAX_RETRIES", setInt(&cfg.EchoGuard.MaxRetries))
	load("ECHO_STRIP_ON_FINAL", setBool(&cfg.EchoGuard.StripOnFinal))

	load("STATE_TRACKING_ENABLED", setBool(&cfg.State.TrackingEnabled))
	load("STATE_CATALOG_PATH", setString(&cfg.State.CatalogPath))
	load("STATE_LIMIT_GOAL", setInt(&cfg.State.LimitGoal))
	load("STATE_LIMIT_TASK", setInt(&cfg.State.LimitTask))
	load("STATE_LIMIT_DECISION", setInt(&cfg.State.LimitDecision))
	load("STATE_LIMIT_FACT", setInt(&cfg.State.LimitFact))
	load("STATE_RECENT_COMPLETED", setInt(&cfg.State.RecentCompleted))
	load("BOREDOM_ENABLED", setBool(&cfg.State.BoredomEnabled))
	load("BOREDOM_THRESHOLD", setInt(&cfg.State.BoredomThreshold))

	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Info("Configuration loaded",
		"max_context_tokens", cfg.Context.MaxTokens,
		"queue_max", cfg.Queue.MaxSize,
		"workers", cfg.Queue.Workers,
		"embedding_dim", cfg.Embedding.Dimension,
		"llm_model", cfg.LLM.Model)

	return cfg, nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat64(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setFloat32(dst *float32) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return err
		}
		*dst = float32(f)
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
