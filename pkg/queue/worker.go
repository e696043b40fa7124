package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/models"
)

// Processor persists one offload job into external memory. Implemented by
// the semantic manager; a per-job failure is the processor's to report and
// never stops the worker.
type Processor interface {
	Process(ctx context.Context, job models.OffloadJob) error
}

// Worker drains the offload queue in the background and feeds each job
// through the processor.
type Worker struct {
	id        string
	queue     *Queue
	latch     *Latch
	processor Processor
	metrics   *metrics.Metrics
	config    config.QueueConfig
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Health tracking
	mu           sync.RWMutex
	running      bool
	processed    int
	failed       int
	lastActivity time.Time
}

// WorkerHealth is a point-in-time snapshot of one worker's state.
type WorkerHealth struct {
	ID             string    `json:"id"`
	IsRunning      bool      `json:"is_running"`
	IsPaused       bool      `json:"is_paused"`
	ProcessedCount int       `json:"processed_count"`
	FailedCount    int       `json:"failed_count"`
	SuccessRate    float64   `json:"success_rate"`
	LastActivity   time.Time `json:"last_activity"`
}

// NewWorker creates a queue worker. latch and m may be nil.
func NewWorker(id string, q *Queue, latch *Latch, processor Processor, m *metrics.Metrics, cfg config.QueueConfig) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		latch:        latch,
		processor:    processor,
		metrics:      m,
		config:       cfg,
		stopCh:       make(chan struct{}),
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the batch in flight to
// finish. It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()

	total := w.processed + w.failed
	rate := 0.0
	if total > 0 {
		rate = float64(w.processed) / float64(total)
	}
	return WorkerHealth{
		ID:             w.id,
		IsRunning:      w.running,
		IsPaused:       w.latch != nil && w.latch.IsPaused(),
		ProcessedCount: w.processed,
		FailedCount:    w.failed,
		SuccessRate:    rate,
		LastActivity:   w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	log := slog.With("worker_id", w.id)
	log.Info("Cold path worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			w.poll(ctx)
		}
	}
}

// poll drains and processes one batch. Generation holds the latch for the
// duration of each LLM call; while it does, the worker backs off instead of
// competing for the memory backends.
func (w *Worker) poll(ctx context.Context) {
	if w.latch != nil && w.latch.IsPaused() {
		w.sleep(w.config.PauseSleep)
		return
	}

	batch := w.queue.DrainBatch(w.config.BatchSize)
	if len(batch) == 0 {
		w.sleep(w.config.IdleSleep)
		return
	}

	log := slog.With("worker_id", w.id)
	log.Info("Processing offload batch", "batch_size", len(batch))

	for _, job := range batch {
		if err := w.processor.Process(ctx, job); err != nil {
			log.Error("Offload job failed",
				"job_id", job.JobID,
				"chunk_id", job.ChunkID,
				"error", err)
			w.metrics.JobProcessed("failure")
			w.recordOutcome(false)
			continue
		}
		w.metrics.JobProcessed("success")
		w.recordOutcome(true)
	}

	w.queue.MarkProcessed(len(batch))
	w.metrics.SetQueueDepth(w.queue.Len())
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) recordOutcome(ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ok {
		w.processed++
	} else {
		w.failed++
	}
	w.lastActivity = time.Now()
}
