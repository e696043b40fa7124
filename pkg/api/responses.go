package api

import (
	"github.com/elevend0g/vicw/pkg/contextmgr"
	"github.com/elevend0g/vicw/pkg/queue"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status             string `json:"status"`
	ContextInitialized bool   `json:"context_initialized"`
	LLMInitialized     bool   `json:"llm_initialized"`
	Model              string `json:"model"`
}

// StatsResponse is returned by GET /stats.
type StatsResponse struct {
	Context contextmgr.Stats `json:"context"`
	Queue   queue.Stats      `json:"queue"`
	Worker  WorkerStats      `json:"worker"`
}

// WorkerStats aggregates the cold-path pool into a single view. Counts are
// summed across workers; the pool is running if any worker is.
type WorkerStats struct {
	IsRunning      bool    `json:"is_running"`
	IsPaused       bool    `json:"is_paused"`
	ProcessedCount int     `json:"processed_count"`
	FailedCount    int     `json:"failed_count"`
	SuccessRate    float64 `json:"success_rate"`
}

// ResetResponse is returned by POST /reset.
type ResetResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	ChunksEnqueued int `json:"chunks_enqueued"`
	ChunksDropped  int `json:"chunks_dropped"`
}

// aggregateWorkerStats folds per-worker health into the pool-level view the
// stats endpoint reports.
func aggregateWorkerStats(health []queue.WorkerHealth) WorkerStats {
	var agg WorkerStats
	for _, w := range health {
		agg.IsRunning = agg.IsRunning || w.IsRunning
		agg.IsPaused = agg.IsPaused || w.IsPaused
		agg.ProcessedCount += w.ProcessedCount
		agg.FailedCount += w.FailedCount
	}
	if total := agg.ProcessedCount + agg.FailedCount; total > 0 {
		agg.SuccessRate = float64(agg.ProcessedCount) / float64(total)
	}
	return agg
}
