// Package retrieval implements hybrid memory search: vector similarity over
// offloaded chunk summaries plus relationship lookups in the knowledge
// graph. Results feed a single synthetic prompt message; a failed leg
// degrades to empty rather than failing the turn.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/extract"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/models"
	"github.com/elevend0g/vicw/pkg/semantic"
	"github.com/elevend0g/vicw/pkg/storage"
	"github.com/elevend0g/vicw/pkg/tokens"
)

// maxQueryTerms caps how many extracted terms feed the relational leg.
const maxQueryTerms = 3

// Coordinator runs both retrieval legs for a query.
type Coordinator struct {
	chunks   storage.ChunkStore
	vectors  storage.VectorIndex
	graph    storage.Graph
	embedder semantic.Embedder
	metrics  *metrics.Metrics
	cfg      config.RAGConfig
}

// NewCoordinator creates a retrieval coordinator. m may be nil.
func NewCoordinator(chunks storage.ChunkStore, vectors storage.VectorIndex, graph storage.Graph, embedder semantic.Embedder, m *metrics.Metrics, cfg config.RAGConfig) *Coordinator {
	return &Coordinator{
		chunks:   chunks,
		vectors:  vectors,
		graph:    graph,
		embedder: embedder,
		metrics:  m,
		cfg:      cfg,
	}
}

// Query runs semantic and relational retrieval concurrently and merges the
// results. Semantic hits come back ordered by score descending with ties
// broken by recency; relational triples keep the graph's order.
func (c *Coordinator) Query(ctx context.Context, query string) models.RAGResult {
	start := time.Now()

	var (
		wg         sync.WaitGroup
		hits       []models.SemanticHit
		relational []string
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		hits = c.semanticSearch(ctx, query)
	}()
	go func() {
		defer wg.Done()
		relational = c.relationalSearch(ctx, query)
	}()
	wg.Wait()

	result := models.RAGResult{Semantic: hits, Relational: relational}
	slog.Info("Hybrid retrieval complete",
		"semantic", len(hits),
		"relational", len(relational),
		"elapsed", time.Since(start))
	return result
}

// semanticSearch embeds the query, searches the vector index, and resolves
// each hit's summary through the chunk store. The chunk store is
// authoritative for summaries; a hit whose chunk is gone (expired or never
// written) is skipped.
func (c *Coordinator) semanticSearch(ctx context.Context, query string) []models.SemanticHit {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		slog.Warn("Semantic retrieval degraded, query embedding failed", "error", err)
		c.metrics.RetrievalFailure("semantic")
		return nil
	}

	hits, err := c.vectors.Search(ctx, vector, c.cfg.TopKSemantic, c.cfg.ScoreThreshold)
	if err != nil {
		slog.Warn("Semantic retrieval degraded, vector search failed", "error", err)
		c.metrics.RetrievalFailure("semantic")
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ChunkID)
	}
	chunks, err := c.chunks.GetChunks(ctx, ids)
	if err != nil {
		slog.Warn("Semantic retrieval degraded, chunk lookup failed", "error", err)
		c.metrics.RetrievalFailure("semantic")
		return nil
	}

	byID := make(map[string]models.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.ChunkID] = chunk
	}

	resolved := make([]models.SemanticHit, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := byID[hit.ChunkID]
		if !ok {
			slog.Warn("Vector hit without stored chunk, skipping", "chunk_id", hit.ChunkID)
			continue
		}
		hit.Summary = chunk.Summary
		if hit.CreatedAt.IsZero() {
			hit.CreatedAt = chunk.CreatedAt
		}
		resolved = append(resolved, hit)
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].Score != resolved[j].Score {
			return resolved[i].Score > resolved[j].Score
		}
		return resolved[i].CreatedAt.After(resolved[j].CreatedAt)
	})
	return resolved
}

func (c *Coordinator) relationalSearch(ctx context.Context, query string) []string {
	terms := extract.QueryTerms(query)
	if len(terms) > maxQueryTerms {
		terms = terms[:maxQueryTerms]
	}
	if len(terms) == 0 {
		return nil
	}

	triples, err := c.graph.RelationalQuery(ctx, terms, c.cfg.TopKRelational)
	if err != nil {
		slog.Warn("Relational retrieval degraded, graph query failed", "error", err)
		c.metrics.RetrievalFailure("relational")
		return nil
	}
	return triples
}

// Injection renders a result as the synthetic rag message, or nil when the
// result carries nothing.
func Injection(result models.RAGResult) *models.Message {
	text := result.InjectionText()
	if text == "" {
		return nil
	}
	return &models.Message{
		Role:       models.RoleRAG,
		Content:    text,
		Timestamp:  time.Now().UTC(),
		TokenCount: tokens.EstimateMessage(text),
	}
}
