// Package metrics provides internal metrics collection for the pipeline.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the pipeline's prometheus instruments.
type Collector struct {
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec

	toolExecutionsTotal   *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec

	trialRoundsTotal *prometheus.CounterVec
	trialLoopEndings *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the pipeline instruments on reg. Pass
// prometheus.DefaultRegisterer outside of tests.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total tokens consumed, split by direction",
		},
		[]string{"provider", "model", "direction"},
	)

	c.toolExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	c.toolExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"tool"},
	)

	c.trialRoundsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_rounds_total",
			Help:      "Total research/review rounds executed",
		},
		[]string{"loop"},
	)

	c.trialLoopEndings = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trial_loop_endings_total",
			Help:      "Loop terminations by reason (escalated or exhausted)",
		},
		[]string{"loop", "reason"},
	)

	return c
}

// RecordLLMRequest records one completion round-trip.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, usage LLMUsage) {
	if c == nil {
		return
	}
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if usage.PromptTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
	}
}

// LLMUsage carries token counts without importing the llm package.
type LLMUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// RecordToolExecution records one tool run.
func (c *Collector) RecordToolExecution(tool, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.toolExecutionsTotal.WithLabelValues(tool, status).Inc()
	c.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordTrialRound counts one completed research/review round.
func (c *Collector) RecordTrialRound(loop string) {
	if c == nil {
		return
	}
	c.trialRoundsTotal.WithLabelValues(loop).Inc()
}

// RecordLoopEnding counts a loop termination with its reason.
func (c *Collector) RecordLoopEnding(loop, reason string) {
	if c == nil {
		return
	}
	c.trialLoopEndings.WithLabelValues(loop, reason).Inc()
}
