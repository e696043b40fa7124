package config

import "time"

// DefaultSystemPrompt seeds the pinned header when SYSTEM_PROMPT is unset.
const DefaultSystemPrompt = "You are a helpful AI assistant with long-term memory. " +
	"Older parts of this conversation may have been archived; archived content " +
	"is retrievable and may be re-injected as context."

// Default returns the built-in configuration used when the environment
// provides no overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			SystemPrompt: DefaultSystemPrompt,
		},
		Context: ContextConfig{
			MaxTokens:           4096,
			OffloadThreshold:    0.80,
			TargetAfterRelief:   0.60,
			HysteresisThreshold: 0.70,
		},
		Queue: QueueConfig{
			MaxSize:    100,
			BatchSize:  3,
			Workers:    1,
			IdleSleep:  500 * time.Millisecond,
			PauseSleep: 100 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			ChunkTTL: 24 * time.Hour,
			Timeout:  10 * time.Second,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "vicw_memory",
			Timeout:    10 * time.Second,
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Password: "password",
			Timeout:  10 * time.Second,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "http://localhost:8081/v1",
			Model:     "all-minilm",
			Dimension: 384,
		},
		LLM: LLMConfig{
			BaseURL:     "http://localhost:8080/v1",
			Model:       "local",
			Timeout:     60 * time.Second,
			MaxRetries:  2,
			MaxTokens:   500,
			Temperature: 0.3,
		},
		RAG: RAGConfig{
			TopKSemantic:   2,
			TopKRelational: 5,
			ScoreThreshold: 0.4,
		},
		EchoGuard: EchoGuardConfig{
			Enabled:             true,
			HistorySize:         10,
			SimilarityThreshold: 0.95,
			MaxRetries:          3,
			StripOnFinal:        true,
		},
		State: StateConfig{
			TrackingEnabled:  true,
			LimitGoal:        2,
			LimitTask:        3,
			LimitDecision:    2,
			LimitFact:        3,
			RecentCompleted:  3,
			BoredomEnabled:   true,
			BoredomThreshold: 5,
		},
	}
}
