package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/metrics"
)

// WorkerPool manages the cold-path workers sharing one queue and one latch.
type WorkerPool struct {
	workers []*Worker
	started bool
}

// NewWorkerPool creates cfg.Workers workers against the given queue.
// latch and m may be nil.
func NewWorkerPool(q *Queue, latch *Latch, processor Processor, m *metrics.Metrics, cfg config.QueueConfig) *WorkerPool {
	count := cfg.Workers
	if count < 1 {
		count = 1
	}

	pool := &WorkerPool{workers: make([]*Worker, 0, count)}
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("cold-path-worker-%d", i)
		pool.workers = append(pool.workers, NewWorker(id, q, latch, processor, m, cfg))
	}
	return pool
}

// Start spawns all worker goroutines.
// It is safe to call multiple times; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true

	slog.Info("Starting cold path worker pool", "worker_count", len(p.workers))
	for _, worker := range p.workers {
		worker.Start(ctx)
	}
}

// Stop signals all workers to stop and waits for them to finish.
// Workers finish their current batches before exiting.
func (p *WorkerPool) Stop() {
	slog.Info("Stopping cold path worker pool")
	for _, worker := range p.workers {
		worker.Stop()
	}
	slog.Info("Cold path worker pool stopped")
}

// Health returns the current health of every worker in the pool.
func (p *WorkerPool) Health() []WorkerHealth {
	health := make([]WorkerHealth, 0, len(p.workers))
	for _, worker := range p.workers {
		health = append(health, worker.Health())
	}
	return health
}
