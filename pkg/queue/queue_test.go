package queue

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevend0g/vicw/pkg/models"
)

func testJob(content string) models.OffloadJob {
	return models.NewOffloadJob("default", "You are a terse assistant.", []models.Message{
		{Role: models.RoleUser, Content: content, TokenCount: 10},
	})
}

func TestQueueEnqueue(t *testing.T) {
	t.Run("accepts jobs below capacity", func(t *testing.T) {
		q := New(3)

		require.True(t, q.Enqueue(testJob("first")))
		require.True(t, q.Enqueue(testJob("second")))
		assert.Equal(t, 2, q.Len())

		stats := q.Stats()
		assert.Equal(t, 2, stats.CurrentSize)
		assert.Equal(t, 3, stats.MaxSize)
		assert.Equal(t, 2, stats.EnqueuedTotal)
		assert.Equal(t, 0, stats.DroppedTotal)
	})

	t.Run("drops the incoming job at capacity", func(t *testing.T) {
		q := New(2)

		kept1 := testJob("kept one")
		kept2 := testJob("kept two")
		require.True(t, q.Enqueue(kept1))
		require.True(t, q.Enqueue(kept2))

		require.False(t, q.Enqueue(testJob("overflow")))
		require.False(t, q.Enqueue(testJob("overflow again")))

		stats := q.Stats()
		assert.Equal(t, 2, stats.CurrentSize)
		assert.Equal(t, 2, stats.EnqueuedTotal)
		assert.Equal(t, 2, stats.DroppedTotal)

		// The backlog accepted first is still intact, in order.
		batch := q.DrainBatch(10)
		require.Len(t, batch, 2)
		assert.Equal(t, kept1.JobID, batch[0].JobID)
		assert.Equal(t, kept2.JobID, batch[1].JobID)
	})

	t.Run("capacity below one is clamped", func(t *testing.T) {
		q := New(0)

		require.True(t, q.Enqueue(testJob("only")))
		require.False(t, q.Enqueue(testJob("rejected")))
		assert.Equal(t, 1, q.Stats().MaxSize)
	})
}

func TestQueueDrainBatch(t *testing.T) {
	t.Run("drains in FIFO order", func(t *testing.T) {
		q := New(10)
		for i := 0; i < 5; i++ {
			require.True(t, q.Enqueue(testJob(fmt.Sprintf("message %d", i))))
		}

		first := q.DrainBatch(3)
		require.Len(t, first, 3)
		assert.Equal(t, "user: message 0", first[0].FullText)
		assert.Equal(t, "user: message 1", first[1].FullText)
		assert.Equal(t, "user: message 2", first[2].FullText)

		second := q.DrainBatch(3)
		require.Len(t, second, 2)
		assert.Equal(t, "user: message 3", second[0].FullText)
		assert.Equal(t, "user: message 4", second[1].FullText)

		assert.Nil(t, q.DrainBatch(3))
		assert.Equal(t, 0, q.Len())
	})

	t.Run("drained capacity is reusable", func(t *testing.T) {
		q := New(2)
		require.True(t, q.Enqueue(testJob("a")))
		require.True(t, q.Enqueue(testJob("b")))
		require.False(t, q.Enqueue(testJob("c")))

		require.Len(t, q.DrainBatch(1), 1)
		require.True(t, q.Enqueue(testJob("d")))
		assert.Equal(t, 2, q.Len())
	})

	t.Run("non-positive batch size drains nothing", func(t *testing.T) {
		q := New(5)
		require.True(t, q.Enqueue(testJob("a")))

		assert.Nil(t, q.DrainBatch(0))
		assert.Nil(t, q.DrainBatch(-1))
		assert.Equal(t, 1, q.Len())
	})
}

func TestQueueMarkProcessed(t *testing.T) {
	q := New(10)
	require.True(t, q.Enqueue(testJob("a")))
	require.True(t, q.Enqueue(testJob("b")))

	batch := q.DrainBatch(2)
	require.Len(t, batch, 2)

	// Draining alone does not count as processing.
	assert.Equal(t, 0, q.Stats().ProcessedTotal)

	q.MarkProcessed(len(batch))
	assert.Equal(t, 2, q.Stats().ProcessedTotal)

	q.MarkProcessed(-1)
	assert.Equal(t, 2, q.Stats().ProcessedTotal)
}
