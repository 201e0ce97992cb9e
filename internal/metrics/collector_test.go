package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return NewCollector("tribunal_test", prometheus.NewRegistry(), zap.NewNop())
}

func TestRecordLLMRequest(t *testing.T) {
	c := newTestCollector(t)

	c.RecordLLMRequest("gemini", "gemini-2.5-flash", "success", 250*time.Millisecond, LLMUsage{
		PromptTokens:     120,
		CompletionTokens: 40,
	})
	c.RecordLLMRequest("gemini", "gemini-2.5-flash", "error", time.Second, LLMUsage{})

	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.llmRequestsTotal.WithLabelValues("gemini", "gemini-2.5-flash", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.llmRequestsTotal.WithLabelValues("gemini", "gemini-2.5-flash", "error")))
	assert.Equal(t, float64(120), testutil.ToFloat64(
		c.llmTokensUsed.WithLabelValues("gemini", "gemini-2.5-flash", "prompt")))
	assert.Equal(t, float64(40), testutil.ToFloat64(
		c.llmTokensUsed.WithLabelValues("gemini", "gemini-2.5-flash", "completion")))
}

func TestRecordToolExecution(t *testing.T) {
	c := newTestCollector(t)

	c.RecordToolExecution("append_to_state", "success", time.Millisecond)
	c.RecordToolExecution("append_to_state", "success", time.Millisecond)
	c.RecordToolExecution("wikipedia", "error", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.toolExecutionsTotal.WithLabelValues("append_to_state", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.toolExecutionsTotal.WithLabelValues("wikipedia", "error")))
}

func TestRecordTrialLifecycle(t *testing.T) {
	c := newTestCollector(t)

	for i := 0; i < 4; i++ {
		c.RecordTrialRound("trial_process")
	}
	c.RecordLoopEnding("trial_process", "exhausted")

	assert.Equal(t, float64(4), testutil.ToFloat64(
		c.trialRoundsTotal.WithLabelValues("trial_process")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.trialLoopEndings.WithLabelValues("trial_process", "exhausted")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	require.NotPanics(t, func() {
		c.RecordLLMRequest("gemini", "m", "success", 0, LLMUsage{})
		c.RecordToolExecution("t", "success", 0)
		c.RecordTrialRound("loop")
		c.RecordLoopEnding("loop", "escalated")
	})
}
