package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := NewWith(prometheus.NewRegistry())

	t.Run("offload counters", func(t *testing.T) {
		m.OffloadInitiated()
		m.OffloadInitiated()
		m.QueueDropped()
		m.SetQueueDepth(7)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.Offloads))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueDrops))
		assert.Equal(t, 7.0, testutil.ToFloat64(m.QueueDepth))
	})

	t.Run("job outcomes by status", func(t *testing.T) {
		m.JobProcessed("success")
		m.JobProcessed("success")
		m.JobProcessed("error")

		expected := `
			# HELP vicw_jobs_processed_total Total number of cold-path jobs processed by status
			# TYPE vicw_jobs_processed_total counter
			vicw_jobs_processed_total{status="error"} 1
			vicw_jobs_processed_total{status="success"} 2
		`
		require.NoError(t, testutil.CollectAndCompare(m.JobsProcessed, strings.NewReader(expected)))
	})

	t.Run("echo guard tiers", func(t *testing.T) {
		m.EchoRejected("polite")
		m.EchoRejected("forceful")
		m.EchoRejected("emergency")
		m.EchoGuardExhausted()

		assert.Equal(t, 3, testutil.CollectAndCount(m.EchoRejections))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.EchoExhausted))
	})

	t.Run("llm request records counter and histogram", func(t *testing.T) {
		m.RecordLLMRequest("success", 1.25)
		m.RecordLLMRequest("error", 0.1)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues("success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LLMRequests.WithLabelValues("error")))
		assert.Equal(t, 1, testutil.CollectAndCount(m.LLMRequestDuration))
	})

	t.Run("retrieval legs", func(t *testing.T) {
		m.RetrievalFailure("semantic")
		m.RetrievalFailure("relational")
		m.RetrievalFailure("relational")

		assert.Equal(t, 2.0, testutil.ToFloat64(m.RetrievalFailures.WithLabelValues("relational")))
	})

	t.Run("context tokens gauge tracks latest value", func(t *testing.T) {
		m.SetContextTokens("default", 1024)
		m.SetContextTokens("default", 2048)

		assert.Equal(t, 2048.0, testutil.ToFloat64(m.ContextTokens.WithLabelValues("default")))
	})
}

func TestNilMetricsNoOps(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.OffloadInitiated()
		m.QueueDropped()
		m.SetQueueDepth(1)
		m.JobProcessed("success")
		m.EchoRejected("polite")
		m.EchoGuardExhausted()
		m.RecordLLMRequest("success", 0.5)
		m.RetrievalFailure("semantic")
		m.SetContextTokens("default", 100)
	})
}

func TestIsolatedRegistries(t *testing.T) {
	a := NewWith(prometheus.NewRegistry())
	b := NewWith(prometheus.NewRegistry())

	a.OffloadInitiated()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Offloads))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Offloads))
}
