package models

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is an immutable unit of offloaded conversation: the messages removed
// in a single shed plus the summary derived in the cold path. Chunks are
// identified globally by ChunkID and written exactly once.
type Chunk struct {
	ChunkID      string            `json:"chunk_id"`
	FullText     string            `json:"chunk_text"`
	Summary      string            `json:"summary"`
	TokenCount   int               `json:"token_count"`
	MessageCount int               `json:"message_count"`
	CreatedAt    time.Time         `json:"timestamp"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// OffloadJob carries one shed's worth of content from the hot path to the
// cold path. Messages are a copy; the hot path retains no reference.
type OffloadJob struct {
	JobID        string            `json:"job_id"`
	ChunkID      string            `json:"chunk_id"`
	Namespace    string            `json:"namespace"`
	Messages     []Message         `json:"messages"`
	PinnedHeader string            `json:"pinned_header"`
	FullText     string            `json:"full_text"`
	TokenCount   int               `json:"token_count"`
	MessageCount int               `json:"message_count"`
	CreatedAt    time.Time         `json:"created_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// NewOffloadJob builds a job from shed messages, deriving the full text,
// token total, and fresh job/chunk identifiers.
func NewOffloadJob(namespace, pinnedHeader string, msgs []Message) OffloadJob {
	total := 0
	for _, m := range msgs {
		total += m.TokenCount
	}
	return OffloadJob{
		JobID:        NewJobID(),
		ChunkID:      NewChunkID(),
		Namespace:    namespace,
		Messages:     msgs,
		PinnedHeader: pinnedHeader,
		FullText:     TranscriptText(msgs),
		TokenCount:   total,
		MessageCount: len(msgs),
		CreatedAt:    time.Now().UTC(),
	}
}

// NewChunkID returns a fresh globally unique chunk identifier. Chunk IDs
// are UUID strings; the vector index uses them directly as point IDs.
func NewChunkID() string {
	return uuid.NewString()
}

// NewJobID returns a fresh offload job identifier.
func NewJobID() string {
	return "job_" + uuid.NewString()
}
