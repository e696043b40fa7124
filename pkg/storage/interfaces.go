// Package storage provides the external memory backends: the Redis chunk
// store, the Qdrant vector index, and the Neo4j knowledge graph. In-memory
// implementations of each interface back unit tests and single-process runs
// without infrastructure.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/elevend0g/vicw/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// ChunkStore persists offloaded conversation chunks keyed by chunk ID.
type ChunkStore interface {
	// PutChunk writes a chunk and registers it in the recency index.
	PutChunk(ctx context.Context, chunk models.Chunk) error

	// GetChunk loads one chunk. Returns ErrNotFound for unknown or
	// expired IDs.
	GetChunk(ctx context.Context, chunkID string) (models.Chunk, error)

	// GetChunks loads several chunks at once. Missing IDs are skipped,
	// not errors; the result preserves the order of the found chunks.
	GetChunks(ctx context.Context, chunkIDs []string) ([]models.Chunk, error)

	// RecentChunkIDs lists up to limit chunk IDs, newest first.
	RecentChunkIDs(ctx context.Context, limit int) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// VectorPayload is the metadata stored alongside a chunk's embedding.
type VectorPayload struct {
	Summary    string
	CreatedAt  time.Time
	TokenCount int
}

// VectorIndex stores chunk embeddings and serves nearest-neighbor queries.
type VectorIndex interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error

	// Upsert writes one embedding. The vector's dimension must match the
	// collection's configured dimension.
	Upsert(ctx context.Context, chunkID string, vector []float32, payload VectorPayload) error

	// Search returns up to limit hits with cosine similarity of at least
	// minScore, ordered by score descending.
	Search(ctx context.Context, vector []float32, limit int, minScore float32) ([]models.SemanticHit, error)

	Ping(ctx context.Context) error
	Close() error
}

// Graph maintains the entity graph built from chunk summaries.
type Graph interface {
	// EnsureSchema creates uniqueness constraints and indexes.
	EnsureSchema(ctx context.Context) error

	// MergeChunk upserts the chunk node, its mentioned entities, and
	// RELATED_TO edges between entities appearing together.
	MergeChunk(ctx context.Context, chunk models.Chunk, entities []string) error

	// RelationalQuery finds relationships whose endpoints match any of the
	// search terms and renders them as "(a)-[:REL]->(b)" triples.
	RelationalQuery(ctx context.Context, terms []string, limit int) ([]string, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// StateFilter narrows a ListStates call. Zero values mean no constraint;
// Limit 0 means unbounded.
type StateFilter struct {
	Namespace string
	Type      models.StateType
	Status    models.StateStatus
	Limit     int
}

// StateStore persists conversational state nodes. Completed states are
// ordered by update recency, all others by creation recency.
type StateStore interface {
	ListStates(ctx context.Context, filter StateFilter) ([]models.State, error)
	CreateState(ctx context.Context, state models.State) error

	// UpdateStateStatus transitions a state and resets its visit count.
	UpdateStateStatus(ctx context.Context, stateID string, status models.StateStatus) error

	// TouchState refreshes last-visited without counting a visit.
	TouchState(ctx context.Context, stateID string) error

	// IncrementVisits bumps the visit counter and returns the new count.
	IncrementVisits(ctx context.Context, stateID string) (int, error)
}
