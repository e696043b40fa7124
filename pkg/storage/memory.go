package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elevend0g/vicw/pkg/models"
)

// MemoryChunkStore is an in-process ChunkStore for tests and runs without
// Redis.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]models.Chunk
	seq    map[string]int64
	nextID int64
}

var _ ChunkStore = (*MemoryChunkStore)(nil)

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{
		chunks: make(map[string]models.Chunk),
		seq:    make(map[string]int64),
	}
}

func (s *MemoryChunkStore) PutChunk(_ context.Context, chunk models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chunks[chunk.ChunkID]; !exists {
		s.nextID++
		s.seq[chunk.ChunkID] = s.nextID
	}
	s.chunks[chunk.ChunkID] = chunk
	return nil
}

func (s *MemoryChunkStore) GetChunk(_ context.Context, chunkID string) (models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[chunkID]
	if !ok {
		return models.Chunk{}, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return chunk, nil
}

func (s *MemoryChunkStore) GetChunks(_ context.Context, chunkIDs []string) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]models.Chunk, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		if chunk, ok := s.chunks[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (s *MemoryChunkStore) RecentChunkIDs(_ context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.chunks[ids[i]], s.chunks[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return s.seq[ids[i]] > s.seq[ids[j]]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Len reports the number of stored chunks.
func (s *MemoryChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *MemoryChunkStore) Ping(context.Context) error { return nil }
func (s *MemoryChunkStore) Close() error               { return nil }

type memoryPoint struct {
	vector  []float32
	payload VectorPayload
	seq     int64
}

// MemoryVectorIndex is an in-process VectorIndex using brute-force cosine
// search.
type MemoryVectorIndex struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]memoryPoint
	nextSeq   int64
}

var _ VectorIndex = (*MemoryVectorIndex)(nil)

func NewMemoryVectorIndex(dimension int) *MemoryVectorIndex {
	return &MemoryVectorIndex{
		dimension: dimension,
		points:    make(map[string]memoryPoint),
	}
}

func (m *MemoryVectorIndex) EnsureCollection(context.Context) error { return nil }

func (m *MemoryVectorIndex) Upsert(_ context.Context, chunkID string, vector []float32, payload VectorPayload) error {
	if len(vector) != m.dimension {
		return fmt.Errorf("vector dimension %d does not match collection dimension %d", len(vector), m.dimension)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	m.points[chunkID] = memoryPoint{
		vector:  append([]float32(nil), vector...),
		payload: payload,
		seq:     m.nextSeq,
	}
	return nil
}

func (m *MemoryVectorIndex) Search(_ context.Context, vector []float32, limit int, minScore float32) ([]models.SemanticHit, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query dimension %d does not match collection dimension %d", len(vector), m.dimension)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]models.SemanticHit, 0, len(m.points))
	for id, point := range m.points {
		score := cosine(vector, point.vector)
		if score < minScore {
			continue
		}
		hits = append(hits, models.SemanticHit{
			ChunkID:   id,
			Summary:   point.payload.Summary,
			Score:     score,
			CreatedAt: point.payload.CreatedAt,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].CreatedAt.After(hits[j].CreatedAt)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len reports the number of indexed vectors.
func (m *MemoryVectorIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func (m *MemoryVectorIndex) Ping(context.Context) error { return nil }
func (m *MemoryVectorIndex) Close() error               { return nil }

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

type memoryTriple struct {
	source string
	rel    string
	target string
}

// MemoryGraph is an in-process Graph and StateStore.
type MemoryGraph struct {
	mu       sync.RWMutex
	triples  []memoryTriple
	tripleID map[memoryTriple]struct{}
	states   map[string]models.State
	stateSeq map[string]int64
	nextSeq  int64
}

var (
	_ Graph      = (*MemoryGraph)(nil)
	_ StateStore = (*MemoryGraph)(nil)
)

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		tripleID: make(map[memoryTriple]struct{}),
		states:   make(map[string]models.State),
		stateSeq: make(map[string]int64),
	}
}

func (g *MemoryGraph) EnsureSchema(context.Context) error { return nil }

func (g *MemoryGraph) MergeChunk(_ context.Context, chunk models.Chunk, entities []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	source := chunk.Summary
	if source == "" {
		source = chunk.ChunkID
	}
	for _, entity := range entities {
		g.addTriple(memoryTriple{source: source, rel: "MENTIONS", target: entity})
	}
	for i := 0; i < len(entities)-1; i++ {
		for j := i + 1; j < len(entities); j++ {
			g.addTriple(memoryTriple{source: entities[i], rel: "RELATED_TO", target: entities[j]})
		}
	}
	return nil
}

func (g *MemoryGraph) addTriple(t memoryTriple) {
	if _, dup := g.tripleID[t]; dup {
		return
	}
	g.tripleID[t] = struct{}{}
	g.triples = append(g.triples, t)
}

func (g *MemoryGraph) RelationalQuery(_ context.Context, terms []string, limit int) ([]string, error) {
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	results := make([]string, 0, limit)
	for _, t := range g.triples {
		if len(results) >= limit {
			break
		}
		for _, term := range terms {
			lower := strings.ToLower(term)
			if strings.Contains(strings.ToLower(t.source), lower) ||
				strings.Contains(strings.ToLower(t.target), lower) {
				results = append(results, fmt.Sprintf("(%s)-[:%s]->(%s)",
					truncateName(t.source), t.rel, truncateName(t.target)))
				break
			}
		}
	}
	return results, nil
}

func (g *MemoryGraph) Ping(context.Context) error  { return nil }
func (g *MemoryGraph) Close(context.Context) error { return nil }

// TripleCount reports the number of stored relationships.
func (g *MemoryGraph) TripleCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.triples)
}

func (g *MemoryGraph) ListStates(_ context.Context, filter StateFilter) ([]models.State, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	matched := make([]models.State, 0, len(g.states))
	for _, state := range g.states {
		if filter.Namespace != "" && state.Namespace != filter.Namespace {
			continue
		}
		if filter.Type != "" && state.Type != filter.Type {
			continue
		}
		if filter.Status != "" && state.Status != filter.Status {
			continue
		}
		matched = append(matched, state)
	}

	byUpdated := filter.Status == models.StateCompleted
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		at, bt := a.CreatedAt, b.CreatedAt
		if byUpdated {
			at, bt = a.UpdatedAt, b.UpdatedAt
		}
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return g.stateSeq[a.ID] > g.stateSeq[b.ID]
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (g *MemoryGraph) CreateState(_ context.Context, state models.State) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.states[state.ID]; exists {
		return fmt.Errorf("state %s already exists", state.ID)
	}
	g.nextSeq++
	g.stateSeq[state.ID] = g.nextSeq
	g.states[state.ID] = state
	return nil
}

func (g *MemoryGraph) UpdateStateStatus(_ context.Context, stateID string, status models.StateStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.states[stateID]
	if !ok {
		return fmt.Errorf("state %s: %w", stateID, ErrNotFound)
	}
	state.Status = status
	state.VisitCount = 0
	state.UpdatedAt = time.Now().UTC()
	g.states[stateID] = state
	return nil
}

func (g *MemoryGraph) TouchState(_ context.Context, stateID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.states[stateID]
	if !ok {
		return fmt.Errorf("state %s: %w", stateID, ErrNotFound)
	}
	state.LastVisited = time.Now().UTC()
	g.states[stateID] = state
	return nil
}

func (g *MemoryGraph) IncrementVisits(_ context.Context, stateID string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	state, ok := g.states[stateID]
	if !ok {
		return 0, fmt.Errorf("state %s: %w", stateID, ErrNotFound)
	}
	state.VisitCount++
	state.LastVisited = time.Now().UTC()
	g.states[stateID] = state
	return state.VisitCount, nil
}
