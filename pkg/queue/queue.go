// Package queue holds offload jobs between the hot path that sheds them and
// the cold-path workers that persist them. Enqueue never blocks the caller:
// when the queue is full the incoming job is dropped and counted, so a stalled
// memory backend degrades recall but never delays a chat turn.
package queue

import (
	"log/slog"
	"sync"

	"github.com/elevend0g/vicw/pkg/models"
)

// Queue is a bounded FIFO of offload jobs shared by the context window
// (producer) and the worker pool (consumer).
type Queue struct {
	mu      sync.Mutex
	jobs    []models.OffloadJob
	maxSize int

	enqueued  int
	processed int
	dropped   int
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	CurrentSize    int `json:"current_size"`
	MaxSize        int `json:"max_size"`
	EnqueuedTotal  int `json:"enqueued_total"`
	ProcessedTotal int `json:"processed_total"`
	DroppedTotal   int `json:"dropped_total"`
}

// New creates a queue holding at most maxSize jobs.
func New(maxSize int) *Queue {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Queue{maxSize: maxSize}
}

// Enqueue adds a job unless the queue is full. A full queue drops the
// incoming job, keeping the already-accepted backlog intact, and returns
// false so the caller can record the loss.
func (q *Queue) Enqueue(job models.OffloadJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) >= q.maxSize {
		q.dropped++
		slog.Warn("Offload queue full, dropping incoming job",
			"job_id", job.JobID,
			"chunk_id", job.ChunkID,
			"max_size", q.maxSize)
		return false
	}

	q.jobs = append(q.jobs, job)
	q.enqueued++
	return true
}

// DrainBatch removes and returns up to n jobs in FIFO order.
func (q *Queue) DrainBatch(n int) []models.OffloadJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.jobs) == 0 {
		return nil
	}
	if n > len(q.jobs) {
		n = len(q.jobs)
	}

	batch := make([]models.OffloadJob, n)
	copy(batch, q.jobs[:n])
	q.jobs = append(q.jobs[:0], q.jobs[n:]...)
	return batch
}

// MarkProcessed records jobs the worker finished with, successfully or not.
// Drained jobs are gone from the queue either way; the counter only feeds
// stats.
func (q *Queue) MarkProcessed(n int) {
	if n <= 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processed += n
}

// Len returns the number of jobs currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Stats returns current counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		CurrentSize:    len(q.jobs),
		MaxSize:        q.maxSize,
		EnqueuedTotal:  q.enqueued,
		ProcessedTotal: q.processed,
		DroppedTotal:   q.dropped,
	}
}
