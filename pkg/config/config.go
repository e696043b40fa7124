// Package config loads and validates the service configuration from
// environment variables, and provides the state-pattern catalog used by the
// extraction engine. Every setting has a default; a process started with an
// empty environment runs against localhost backends.
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig
	Context   ContextConfig
	Queue     QueueConfig
	Redis     RedisConfig
	Qdrant    QdrantConfig
	Neo4j     Neo4jConfig
	Embedding EmbeddingConfig
	LLM       LLMConfig
	RAG       RAGConfig
	EchoGuard EchoGuardConfig
	State     StateConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port the HTTP API listens on.
	Port string

	// SystemPrompt seeds each new session's pinned header.
	SystemPrompt string
}

// ContextConfig controls the hot-path token budget and pressure thresholds.
type ContextConfig struct {
	// MaxTokens is the hard context budget (T_max).
	MaxTokens int

	// OffloadThreshold is the pressure fraction that initiates a shed.
	OffloadThreshold float64

	// TargetAfterRelief is the pressure fraction a shed reduces usage to.
	TargetAfterRelief float64

	// HysteresisThreshold is the pressure fraction below which the
	// post-shed suppression flag clears.
	HysteresisThreshold float64
}

// QueueConfig controls the offload queue and the cold-path workers.
type QueueConfig struct {
	// MaxSize is the queue capacity; enqueues beyond it drop the job.
	MaxSize int

	// BatchSize is how many jobs a worker drains per poll.
	BatchSize int

	// Workers is the number of cold-path worker goroutines.
	Workers int

	// IdleSleep is the pause between polls that found no jobs.
	IdleSleep time.Duration

	// PauseSleep is the pause between polls while generation holds the latch.
	PauseSleep time.Duration
}

// RedisConfig holds chunk-store connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// ChunkTTL is how long offloaded chunk records are retained.
	ChunkTTL time.Duration

	// Timeout bounds individual store operations.
	Timeout time.Duration
}

// QdrantConfig holds vector-index connection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Timeout    time.Duration
}

// Neo4jConfig holds graph-store connection settings.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Timeout  time.Duration
}

// EmbeddingConfig selects the embedding endpoint and pins the vector
// dimension. The dimension must match at write and query time; the vector
// client refuses mixed-dimension writes.
type EmbeddingConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
}

// LLMConfig holds completion-endpoint settings.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float32
}

// RAGConfig controls hybrid retrieval.
type RAGConfig struct {
	// TopKSemantic is the vector-search result limit.
	TopKSemantic int

	// TopKRelational is the graph-search result limit.
	TopKRelational int

	// ScoreThreshold is the minimum cosine similarity for semantic hits.
	ScoreThreshold float32
}

// EchoGuardConfig controls repetition detection on assistant output.
type EchoGuardConfig struct {
	Enabled bool

	// HistorySize is the echo ring capacity (H).
	HistorySize int

	// SimilarityThreshold is the cosine similarity above which a candidate
	// response counts as an echo.
	SimilarityThreshold float32

	// MaxRetries is the number of regeneration attempts after a rejection.
	MaxRetries int

	// StripOnFinal enables the emergency override on the last attempt:
	// RAG and state injections are removed from the prompt.
	StripOnFinal bool
}

// StateConfig controls the conversational state machine.
type StateConfig struct {
	TrackingEnabled bool

	// CatalogPath points at a YAML pattern catalog; empty uses the builtin.
	CatalogPath string

	// Per-type caps on injected active states.
	LimitGoal     int
	LimitTask     int
	LimitDecision int
	LimitFact     int

	// RecentCompleted is how many completed states are injected as
	// "already done" reminders.
	RecentCompleted int

	BoredomEnabled bool

	// BoredomThreshold is the visit count at which the loop warning fires.
	BoredomThreshold int
}
