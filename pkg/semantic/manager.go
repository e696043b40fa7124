// Package semantic implements the cold path of the context engine:
// extractive summarization, embedding, and persistence of offloaded chunks
// into the chunk store, vector index, and knowledge graph.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elevend0g/vicw/pkg/extract"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/storage"
)

// StateRecorder receives the state candidates extracted from a processed
// chunk. Implemented by the state tracker.
type StateRecorder interface {
	Record(ctx context.Context, namespace string, candidates []models.StateCandidate) error
}

// Manager runs the per-job cold pipeline: summarize, embed, persist to the
// chunk store, vector index, and graph, then extract and record state.
type Manager struct {
	chunks   storage.ChunkStore
	vectors  storage.VectorIndex
	graph    storage.Graph
	embedder Embedder
	engine   *extract.Engine
	states   StateRecorder
}

// NewManager wires the cold pipeline. engine and states may be nil, which
// disables state tracking; the persistence steps always run.
func NewManager(chunks storage.ChunkStore, vectors storage.VectorIndex, graph storage.Graph, embedder Embedder, engine *extract.Engine, states StateRecorder) *Manager {
	return &Manager{
		chunks:   chunks,
		vectors:  vectors,
		graph:    graph,
		embedder: embedder,
		engine:   engine,
		states:   states,
	}
}

// Process runs one offload job through the pipeline. Steps are isolated: a
// failing step is logged and the remaining steps still run, except that the
// vector upsert is skipped when embedding fails. The returned error joins
// all step failures.
func (m *Manager) Process(ctx context.Context, job models.OffloadJob) error {
	log := slog.With("job_id", job.JobID, "chunk_id", job.ChunkID, "namespace", job.Namespace)
	log.Info("processing offload job", "tokens", job.TokenCount, "messages", job.MessageCount)

	summary := Summarize(job.FullText)
	chunk := models.Chunk{
		ChunkID:      job.ChunkID,
		FullText:     job.FullText,
		Summary:      summary,
		TokenCount:   job.TokenCount,
		MessageCount: job.MessageCount,
		CreatedAt:    job.CreatedAt,
		Metadata:     job.Metadata,
	}

	var errs []error
	fail := func(step string, err error) {
		log.Error("cold path step failed", "step", step, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", step, err))
	}

	vector, err := m.embedder.Embed(ctx, summary)
	if err != nil {
		fail("embed", err)
		vector = nil
	}

	if err := m.chunks.PutChunk(ctx, chunk); err != nil {
		fail("chunk put", err)
	}

	if vector != nil {
		payload := storage.VectorPayload{
			Summary:    summary,
			CreatedAt:  chunk.CreatedAt,
			TokenCount: chunk.TokenCount,
		}
		if err := m.vectors.Upsert(ctx, chunk.ChunkID, vector, payload); err != nil {
			fail("vector upsert", err)
		}
	}

	if err := m.graph.MergeChunk(ctx, chunk, extract.Entities(summary)); err != nil {
		fail("graph merge", err)
	}

	if m.engine != nil && m.states != nil {
		if candidates := m.engine.States(job.FullText); len(candidates) > 0 {
			if err := m.states.Record(ctx, job.Namespace, candidates); err != nil {
				fail("state record", err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to process job %s: %w", job.JobID, errors.Join(errs...))
	}
	log.Info("offload job processed", "summary_chars", len(summary))
	return nil
}
