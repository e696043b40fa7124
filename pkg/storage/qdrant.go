package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
)

// QdrantIndex stores chunk embeddings in a single Qdrant collection with
// cosine distance. Point IDs are the chunk IDs themselves, which must be
// UUID strings; re-upserting a chunk overwrites its point.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimension  int
	timeout    time.Duration
}

var _ VectorIndex = (*QdrantIndex)(nil)

// NewQdrantIndex connects to Qdrant and verifies the connection.
func NewQdrantIndex(ctx context.Context, cfg config.QdrantConfig, dimension int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimension:  dimension,
		timeout:    cfg.Timeout,
	}

	if err := idx.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	slog.Info("Qdrant vector index connected",
		"host", cfg.Host, "port", cfg.Port,
		"collection", cfg.Collection, "dimension", dimension)
	return idx, nil
}

func (q *QdrantIndex) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, q.timeout)
}

// EnsureCollection creates the collection with the configured dimension if
// it does not already exist.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	ctx, cancel := q.opCtx(ctx)
	defer cancel()

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", q.collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
		OnDiskPayload: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}

	slog.Info("Created Qdrant collection", "collection", q.collection, "dimension", q.dimension)
	return nil
}

// Upsert writes one embedding with its payload. Vectors of the wrong
// dimension are rejected before they reach the index.
func (q *QdrantIndex) Upsert(ctx context.Context, chunkID string, vector []float32, payload VectorPayload) error {
	if len(vector) != q.dimension {
		return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(vector), q.dimension)
	}

	ctx, cancel := q.opCtx(ctx)
	defer cancel()

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(chunkID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"summary":     payload.Summary,
			"created_at":  payload.CreatedAt.UTC().Format(time.RFC3339),
			"token_count": int64(payload.TokenCount),
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert vector for chunk %s: %w", chunkID, err)
	}
	return nil
}

// Search returns the nearest neighbors above minScore, best first.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, limit int, minScore float32) ([]models.SemanticHit, error) {
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := q.opCtx(ctx)
	defer cancel()

	query := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if minScore > 0 {
		query.ScoreThreshold = qdrant.PtrOf(minScore)
	}

	points, err := q.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", q.collection, err)
	}

	hits := make([]models.SemanticHit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		hit := models.SemanticHit{
			ChunkID: p.GetId().GetUuid(),
			Summary: payload["summary"].GetStringValue(),
			Score:   p.GetScore(),
		}
		if raw := payload["created_at"].GetStringValue(); raw != "" {
			if ts, err := time.Parse(time.RFC3339, raw); err == nil {
				hit.CreatedAt = ts
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (q *QdrantIndex) Ping(ctx context.Context) error {
	ctx, cancel := q.opCtx(ctx)
	defer cancel()
	_, err := q.client.HealthCheck(ctx)
	return err
}

func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
