// Package metrics registers and records the service's Prometheus metrics.
//
// A nil *Metrics is valid: every recorder method no-ops, so components can
// be constructed without metrics in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the memory pipeline.
type Metrics struct {
	// Offloads counts context sheds initiated by the hot path.
	Offloads prometheus.Counter

	// QueueDrops counts offload jobs dropped because the queue was full.
	QueueDrops prometheus.Counter

	// QueueDepth tracks the current number of queued offload jobs.
	QueueDepth prometheus.Gauge

	// JobsProcessed counts cold-path jobs by outcome.
	// Labels: status (success|error)
	JobsProcessed *prometheus.CounterVec

	// EchoRejections counts responses rejected by the echo guard.
	// Labels: tier (polite|forceful|emergency)
	EchoRejections *prometheus.CounterVec

	// EchoExhausted counts turns where every regeneration attempt echoed
	// and the repetitive response was accepted.
	EchoExhausted prometheus.Counter

	// LLMRequests counts completion requests by outcome.
	// Labels: status (success|error)
	LLMRequests *prometheus.CounterVec

	// LLMRequestDuration measures completion request latency in seconds.
	LLMRequestDuration prometheus.Histogram

	// RetrievalFailures counts retrieval legs that returned an error.
	// Labels: leg (semantic|relational)
	RetrievalFailures *prometheus.CounterVec

	// ContextTokens tracks the live window's token usage per session.
	// Labels: session
	ContextTokens *prometheus.GaugeVec
}

// New creates and registers all collectors with the default registry.
// Call once at startup.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates the collectors against a specific registerer. Tests use
// this with a fresh registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Offloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "vicw_offloads_total",
			Help: "Total number of context sheds initiated by the hot path",
		}),

		QueueDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "vicw_offload_queue_drops_total",
			Help: "Total number of offload jobs dropped because the queue was full",
		}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vicw_offload_queue_depth",
			Help: "Current number of queued offload jobs",
		}),

		JobsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vicw_jobs_processed_total",
				Help: "Total number of cold-path jobs processed by status",
			},
			[]string{"status"},
		),

		EchoRejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vicw_echo_guard_rejections_total",
				Help: "Total number of responses rejected by the echo guard, by escalation tier",
			},
			[]string{"tier"},
		),

		EchoExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "vicw_echo_guard_exhausted_total",
			Help: "Total number of turns where all regeneration attempts echoed",
		}),

		LLMRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vicw_llm_requests_total",
				Help: "Total number of completion requests by status",
			},
			[]string{"status"},
		),

		LLMRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vicw_llm_request_duration_seconds",
			Help:    "Duration of completion requests in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		RetrievalFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vicw_retrieval_failures_total",
				Help: "Total number of retrieval legs that returned an error",
			},
			[]string{"leg"},
		),

		ContextTokens: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vicw_context_tokens",
				Help: "Live window token usage per session",
			},
			[]string{"session"},
		),
	}
}

// OffloadInitiated records a context shed.
func (m *Metrics) OffloadInitiated() {
	if m == nil {
		return
	}
	m.Offloads.Inc()
}

// QueueDropped records an offload job lost to a full queue.
func (m *Metrics) QueueDropped() {
	if m == nil {
		return
	}
	m.QueueDrops.Inc()
}

// SetQueueDepth records the current queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// JobProcessed records one cold-path job outcome.
func (m *Metrics) JobProcessed(status string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(status).Inc()
}

// EchoRejected records an echo-guard rejection at the given tier.
func (m *Metrics) EchoRejected(tier string) {
	if m == nil {
		return
	}
	m.EchoRejections.WithLabelValues(tier).Inc()
}

// EchoGuardExhausted records a turn that accepted a repetitive response
// after exhausting regeneration attempts.
func (m *Metrics) EchoGuardExhausted() {
	if m == nil {
		return
	}
	m.EchoExhausted.Inc()
}

// RecordLLMRequest records one completion request.
func (m *Metrics) RecordLLMRequest(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(status).Inc()
	m.LLMRequestDuration.Observe(durationSeconds)
}

// RetrievalFailure records a failed retrieval leg.
func (m *Metrics) RetrievalFailure(leg string) {
	if m == nil {
		return
	}
	m.RetrievalFailures.WithLabelValues(leg).Inc()
}

// SetContextTokens records a session's live window usage.
func (m *Metrics) SetContextTokens(session string, tokens int) {
	if m == nil {
		return
	}
	m.ContextTokens.WithLabelValues(session).Set(float64(tokens))
}
