package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/models"
)

// newTestRedisStore spins up a Redis testcontainer, or skips when Docker is
// not available.
func newTestRedisStore(t *testing.T) *RedisChunkStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Skipf("Docker not available, skipping integration test: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := NewRedisChunkStore(ctx, config.RedisConfig{
		Addr:     strings.TrimPrefix(connStr, "redis://"),
		ChunkTTL: time.Hour,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRedisChunkStoreRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	chunk := models.Chunk{
		ChunkID:      "chunk_itest_1",
		FullText:     "user: hello\nassistant: hi there",
		Summary:      "Greeting exchange",
		TokenCount:   12,
		MessageCount: 2,
		CreatedAt:    time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		Metadata:     map[string]string{"source": "conversation"},
	}
	require.NoError(t, store.PutChunk(ctx, chunk))

	t.Run("get preserves all fields", func(t *testing.T) {
		got, err := store.GetChunk(ctx, chunk.ChunkID)
		require.NoError(t, err)
		assert.Equal(t, chunk.FullText, got.FullText)
		assert.Equal(t, chunk.Summary, got.Summary)
		assert.Equal(t, chunk.TokenCount, got.TokenCount)
		assert.Equal(t, chunk.MessageCount, got.MessageCount)
		assert.True(t, chunk.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, chunk.Metadata, got.Metadata)
	})

	t.Run("missing id is ErrNotFound", func(t *testing.T) {
		_, err := store.GetChunk(ctx, "chunk_absent")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("batch get skips missing ids", func(t *testing.T) {
		second := chunk
		second.ChunkID = "chunk_itest_2"
		second.CreatedAt = chunk.CreatedAt.Add(time.Minute)
		require.NoError(t, store.PutChunk(ctx, second))

		chunks, err := store.GetChunks(ctx, []string{chunk.ChunkID, "chunk_absent", second.ChunkID})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, chunk.ChunkID, chunks[0].ChunkID)
		assert.Equal(t, second.ChunkID, chunks[1].ChunkID)
	})

	t.Run("recent index orders newest first", func(t *testing.T) {
		ids, err := store.RecentChunkIDs(ctx, 10)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(ids), 2)
		assert.Equal(t, "chunk_itest_2", ids[0])
		assert.Equal(t, "chunk_itest_1", ids[1])
	})

	t.Run("ping succeeds", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
