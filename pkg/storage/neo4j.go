package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
)

// Neo4jGraph backs both the entity graph and the state store with a single
// Neo4j driver. Chunk and Entity nodes are global; State nodes carry a
// namespace so concurrent sessions do not see each other's goals.
type Neo4jGraph struct {
	driver  neo4j.DriverWithContext
	timeout time.Duration
}

var (
	_ Graph      = (*Neo4jGraph)(nil)
	_ StateStore = (*Neo4jGraph)(nil)
)

// NewNeo4jGraph connects to Neo4j and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	g := &Neo4jGraph{driver: driver, timeout: cfg.Timeout}

	if err := g.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	slog.Info("Neo4j graph connected", "uri", cfg.URI)
	return g, nil
}

func (g *Neo4jGraph) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

// EnsureSchema creates uniqueness constraints and indexes. All statements
// are idempotent.
func (g *Neo4jGraph) EnsureSchema(ctx context.Context) error {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	statements := []string{
		"CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE",
		"CREATE CONSTRAINT chunk_id_unique IF NOT EXISTS FOR (c:Chunk) REQUIRE c.chunk_id IS UNIQUE",
		"CREATE CONSTRAINT state_id_unique IF NOT EXISTS FOR (s:State) REQUIRE s.state_id IS UNIQUE",
		"CREATE INDEX state_type_status_idx IF NOT EXISTS FOR (s:State) ON (s.state_type, s.status)",
		"CREATE INDEX state_namespace_idx IF NOT EXISTS FOR (s:State) ON (s.namespace)",
		"CREATE INDEX chunk_processed_idx IF NOT EXISTS FOR (c:Chunk) ON (c.processed_at)",
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range statements {
		res, err := session.Run(ctx, stmt, nil)
		if err == nil {
			_, err = res.Consume(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to apply graph schema: %w", err)
		}
	}
	return nil
}

// MergeChunk upserts the chunk node, its entities with MENTIONS edges, and
// RELATED_TO edges between entities mentioned together, in one transaction.
func (g *Neo4jGraph) MergeChunk(ctx context.Context, chunk models.Chunk, entities []string) error {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	now := time.Now().UnixMilli()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		err := runConsume(ctx, tx, `
			MERGE (c:Chunk {chunk_id: $chunk_id})
			SET c.summary = $summary,
			    c.token_count = $token_count,
			    c.processed_at = $now`,
			map[string]any{
				"chunk_id":    chunk.ChunkID,
				"summary":     chunk.Summary,
				"token_count": chunk.TokenCount,
				"now":         now,
			})
		if err != nil {
			return nil, err
		}

		if len(entities) > 0 {
			err = runConsume(ctx, tx, `
				MATCH (c:Chunk {chunk_id: $chunk_id})
				UNWIND $entities AS name
				MERGE (e:Entity {name: name})
				SET e.updated_at = $now
				MERGE (c)-[:MENTIONS]->(e)`,
				map[string]any{
					"chunk_id": chunk.ChunkID,
					"entities": toAnySlice(entities),
					"now":      now,
				})
			if err != nil {
				return nil, err
			}
		}

		if pairs := entityPairs(entities); len(pairs) > 0 {
			err = runConsume(ctx, tx, `
				UNWIND $pairs AS pair
				MATCH (a:Entity {name: pair[0]})
				MATCH (b:Entity {name: pair[1]})
				MERGE (a)-[:RELATED_TO]-(b)`,
				map[string]any{"pairs": pairs})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to merge chunk %s into graph: %w", chunk.ChunkID, err)
	}
	return nil
}

// RelationalQuery matches relationships whose endpoint names or summaries
// contain any search term, rendered as "(a)-[:REL]->(b)" triples.
func (g *Neo4jGraph) RelationalQuery(ctx context.Context, terms []string, limit int) ([]string, error) {
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			UNWIND $terms AS term
			MATCH (n)-[r]->(m)
			WHERE toLower(coalesce(n.name, '')) CONTAINS toLower(term)
			   OR toLower(coalesce(m.name, '')) CONTAINS toLower(term)
			   OR toLower(coalesce(n.summary, '')) CONTAINS toLower(term)
			   OR toLower(coalesce(m.summary, '')) CONTAINS toLower(term)
			WITH DISTINCT n, r, m
			RETURN coalesce(n.name, n.summary, head(labels(n))) AS source,
			       type(r) AS rel,
			       coalesce(m.name, m.summary, head(labels(m))) AS target
			LIMIT $limit`,
			map[string]any{
				"terms": toAnySlice(terms),
				"limit": limit,
			})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("relational query failed: %w", err)
	}

	records := result.([]*neo4j.Record)
	triples := make([]string, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		source := truncateName(stringValue(rec, "source"))
		rel := stringValue(rec, "rel")
		target := truncateName(stringValue(rec, "target"))

		triple := fmt.Sprintf("(%s)-[:%s]->(%s)", source, rel, target)
		if _, dup := seen[triple]; dup {
			continue
		}
		seen[triple] = struct{}{}
		triples = append(triples, triple)
	}
	return triples, nil
}

// ListStates returns states matching the filter. Completed states come back
// newest-transition first, all others newest-created first.
func (g *Neo4jGraph) ListStates(ctx context.Context, filter StateFilter) ([]models.State, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`
		MATCH (s:State {namespace: $namespace})
		WHERE ($type = '' OR s.state_type = $type)
		  AND ($status = '' OR s.status = $status)
		RETURN s.state_id AS state_id, s.namespace AS namespace,
		       s.state_type AS state_type,
		       s.description AS description, s.status AS status,
		       s.visit_count AS visit_count, s.last_visited AS last_visited,
		       s.created_at AS created_at, s.updated_at AS updated_at`)
	if filter.Status == models.StateCompleted {
		sb.WriteString("\nORDER BY s.updated_at DESC")
	} else {
		sb.WriteString("\nORDER BY s.created_at DESC")
	}
	if filter.Limit > 0 {
		sb.WriteString("\nLIMIT $limit")
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, sb.String(), map[string]any{
			"namespace": filter.Namespace,
			"type":      string(filter.Type),
			"status":    string(filter.Status),
			"limit":     filter.Limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	records := result.([]*neo4j.Record)
	states := make([]models.State, 0, len(records))
	for _, rec := range records {
		states = append(states, stateFromRecord(rec))
	}
	return states, nil
}

// CreateState persists a new state node.
func (g *Neo4jGraph) CreateState(ctx context.Context, state models.State) error {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, `
			CREATE (s:State {
				state_id: $state_id,
				namespace: $namespace,
				state_type: $state_type,
				description: $description,
				status: $status,
				visit_count: $visit_count,
				last_visited: $last_visited,
				created_at: $created_at,
				updated_at: $updated_at
			})`,
			map[string]any{
				"state_id":     state.ID,
				"namespace":    state.Namespace,
				"state_type":   string(state.Type),
				"description":  state.Description,
				"status":       string(state.Status),
				"visit_count":  state.VisitCount,
				"last_visited": state.LastVisited.UnixMilli(),
				"created_at":   state.CreatedAt.UnixMilli(),
				"updated_at":   state.UpdatedAt.UnixMilli(),
			})
	})
	if err != nil {
		return fmt.Errorf("failed to create state %s: %w", state.ID, err)
	}
	return nil
}

// UpdateStateStatus transitions a state and resets its visit count.
func (g *Neo4jGraph) UpdateStateStatus(ctx context.Context, stateID string, status models.StateStatus) error {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:State {state_id: $state_id})
			SET s.status = $status,
			    s.visit_count = 0,
			    s.updated_at = $now
			RETURN s.state_id`,
			map[string]any{
				"state_id": stateID,
				"status":   string(status),
				"now":      time.Now().UnixMilli(),
			})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to update state %s: %w", stateID, err)
	}
	if len(result.([]*neo4j.Record)) == 0 {
		return fmt.Errorf("state %s: %w", stateID, ErrNotFound)
	}
	return nil
}

// TouchState refreshes last-visited without counting a visit.
func (g *Neo4jGraph) TouchState(ctx context.Context, stateID string) error {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, `
			MATCH (s:State {state_id: $state_id})
			SET s.last_visited = $now`,
			map[string]any{"state_id": stateID, "now": time.Now().UnixMilli()})
	})
	if err != nil {
		return fmt.Errorf("failed to touch state %s: %w", stateID, err)
	}
	return nil
}

// IncrementVisits bumps the visit counter and returns the new count.
func (g *Neo4jGraph) IncrementVisits(ctx context.Context, stateID string) (int, error) {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (s:State {state_id: $state_id})
			SET s.visit_count = s.visit_count + 1,
			    s.last_visited = $now
			RETURN s.visit_count AS visits`,
			map[string]any{"state_id": stateID, "now": time.Now().UnixMilli()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record visit for state %s: %w", stateID, err)
	}

	records := result.([]*neo4j.Record)
	if len(records) == 0 {
		return 0, fmt.Errorf("state %s: %w", stateID, ErrNotFound)
	}
	visits, _ := records[0].Get("visits")
	count, _ := visits.(int64)
	return int(count), nil
}

func (g *Neo4jGraph) Ping(ctx context.Context) error {
	ctx, cancel := g.opCtx(ctx)
	defer cancel()
	return g.driver.VerifyConnectivity(ctx)
}

func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func stateFromRecord(rec *neo4j.Record) models.State {
	state := models.State{
		ID:          stringValue(rec, "state_id"),
		Namespace:   stringValue(rec, "namespace"),
		Type:        models.StateType(stringValue(rec, "state_type")),
		Description: stringValue(rec, "description"),
		Status:      models.StateStatus(stringValue(rec, "status")),
	}
	state.VisitCount = int(intValue(rec, "visit_count"))
	state.LastVisited = time.UnixMilli(intValue(rec, "last_visited")).UTC()
	state.CreatedAt = time.UnixMilli(intValue(rec, "created_at")).UTC()
	state.UpdatedAt = time.UnixMilli(intValue(rec, "updated_at")).UTC()
	return state
}

// runConsume executes a write statement and drains its result inside the
// transaction, where the result is still valid.
func runConsume(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	n, _ := v.(int64)
	return n
}

// truncateName keeps injected triples compact when a summary stands in for
// an entity name.
func truncateName(name string) string {
	if len(name) > 50 {
		return name[:47] + "..."
	}
	return name
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// entityPairs returns the unordered pairs of entities mentioned together.
func entityPairs(entities []string) []any {
	if len(entities) < 2 {
		return nil
	}
	pairs := make([]any, 0, len(entities)*(len(entities)-1)/2)
	for i := 0; i < len(entities)-1; i++ {
		for j := i + 1; j < len(entities); j++ {
			pairs = append(pairs, []any{entities[i], entities[j]})
		}
	}
	return pairs
}
