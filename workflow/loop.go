package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/internal/metrics"
	"github.com/veritaslab/tribunal/session"
)

// Loop ending reasons, used as the metric label.
const (
	EndingEscalated = "escalated" // a stage raised the session escalation flag
	EndingExhausted = "exhausted" // the round ceiling was reached
)

// Loop repeats its sub-runners as rounds until a stage requests termination
// through the session escalation flag or the round ceiling is reached.
// Either way the loop ends silently and the pipeline moves on; only the logs
// and metrics record which one happened.
type Loop struct {
	name      string
	maxRounds int
	runners   []Runner
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewLoop creates a loop runner. maxRounds must be positive. collector may
// be nil.
func NewLoop(name string, maxRounds int, collector *metrics.Collector, logger *zap.Logger, runners ...Runner) (*Loop, error) {
	if maxRounds <= 0 {
		return nil, fmt.Errorf("loop %s: maxRounds must be positive, got %d", name, maxRounds)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		name:      name,
		maxRounds: maxRounds,
		runners:   runners,
		collector: collector,
		logger:    logger,
	}, nil
}

func (l *Loop) Name() string { return l.name }

// MaxRounds returns the loop's round ceiling.
func (l *Loop) MaxRounds() int { return l.maxRounds }

func (l *Loop) Run(ctx context.Context, state *session.State) error {
	// A stale flag from an earlier loop must not end this one.
	state.ResetEscalation()

	for round := 1; round <= l.maxRounds; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		l.logger.Info("loop round starting",
			zap.String("loop", l.name),
			zap.Int("round", round),
			zap.Int("max_rounds", l.maxRounds))

		for _, runner := range l.runners {
			if err := runner.Run(ctx, state); err != nil {
				return fmt.Errorf("round %d (%s) failed: %w", round, runner.Name(), err)
			}
			if state.Escalated() {
				break
			}
		}
		l.collector.RecordTrialRound(l.name)

		if state.Escalated() {
			l.collector.RecordLoopEnding(l.name, EndingEscalated)
			l.logger.Info("loop ended by escalation",
				zap.String("loop", l.name),
				zap.Int("rounds", round))
			return nil
		}
	}

	l.collector.RecordLoopEnding(l.name, EndingExhausted)
	l.logger.Info("loop ended by round ceiling",
		zap.String("loop", l.name),
		zap.Int("rounds", l.maxRounds))
	return nil
}
