package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
)

const (
	chunkKeyPrefix = "chunk:"
	chunkIndexKey  = "chunk_index"
)

// RedisChunkStore stores chunks as hashes under "chunk:<id>" with a TTL,
// plus a sorted set indexing chunk IDs by creation time.
type RedisChunkStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

var _ ChunkStore = (*RedisChunkStore)(nil)

// NewRedisChunkStore connects to Redis and verifies the connection.
func NewRedisChunkStore(ctx context.Context, cfg config.RedisConfig) (*RedisChunkStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	s := &RedisChunkStore{
		client:  client,
		ttl:     cfg.ChunkTTL,
		timeout: cfg.Timeout,
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	slog.Info("Redis chunk store connected", "addr", cfg.Addr, "chunk_ttl", cfg.ChunkTTL)
	return s, nil
}

func (s *RedisChunkStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// PutChunk writes the chunk hash, its TTL, and the index entry in one
// transaction.
func (s *RedisChunkStore) PutChunk(ctx context.Context, chunk models.Chunk) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	metadata, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode chunk metadata: %w", err)
	}

	key := chunkKeyPrefix + chunk.ChunkID
	fields := map[string]any{
		"chunk_id":      chunk.ChunkID,
		"chunk_text":    chunk.FullText,
		"summary":       chunk.Summary,
		"metadata":      string(metadata),
		"timestamp":     strconv.FormatInt(chunk.CreatedAt.Unix(), 10),
		"token_count":   strconv.Itoa(chunk.TokenCount),
		"message_count": strconv.Itoa(chunk.MessageCount),
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		pipe.ZAdd(ctx, chunkIndexKey, redis.Z{
			Score:  float64(chunk.CreatedAt.Unix()),
			Member: chunk.ChunkID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store chunk %s: %w", chunk.ChunkID, err)
	}
	return nil
}

// GetChunk loads one chunk by ID.
func (s *RedisChunkStore) GetChunk(ctx context.Context, chunkID string) (models.Chunk, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, chunkKeyPrefix+chunkID).Result()
	if err != nil {
		return models.Chunk{}, fmt.Errorf("failed to load chunk %s: %w", chunkID, err)
	}
	if len(fields) == 0 {
		return models.Chunk{}, fmt.Errorf("chunk %s: %w", chunkID, ErrNotFound)
	}
	return chunkFromFields(chunkID, fields), nil
}

// GetChunks loads several chunks in one pipeline round trip. Expired or
// unknown IDs are silently skipped.
func (s *RedisChunkStore) GetChunks(ctx context.Context, chunkIDs []string) ([]models.Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cmds := make([]*redis.MapStringStringCmd, len(chunkIDs))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range chunkIDs {
			cmds[i] = pipe.HGetAll(ctx, chunkKeyPrefix+id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	chunks := make([]models.Chunk, 0, len(chunkIDs))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue
		}
		chunks = append(chunks, chunkFromFields(chunkIDs[i], fields))
	}
	return chunks, nil
}

// RecentChunkIDs returns up to limit chunk IDs, newest first.
func (s *RedisChunkStore) RecentChunkIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	ids, err := s.client.ZRevRange(ctx, chunkIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent chunks: %w", err)
	}
	return ids, nil
}

func (s *RedisChunkStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func (s *RedisChunkStore) Close() error {
	return s.client.Close()
}

func chunkFromFields(chunkID string, fields map[string]string) models.Chunk {
	chunk := models.Chunk{
		ChunkID:  chunkID,
		FullText: fields["chunk_text"],
		Summary:  fields["summary"],
	}
	chunk.TokenCount, _ = strconv.Atoi(fields["token_count"])
	chunk.MessageCount, _ = strconv.Atoi(fields["message_count"])
	if ts, err := strconv.ParseInt(fields["timestamp"], 10, 64); err == nil {
		chunk.CreatedAt = time.Unix(ts, 0).UTC()
	}
	if raw := fields["metadata"]; raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &chunk.Metadata); err != nil {
			slog.Warn("Discarding unreadable chunk metadata", "chunk_id", chunkID, "error", err)
		}
	}
	return chunk
}
