// Package workflow provides the orchestration primitives the pipeline is
// assembled from: Sequential, Parallel and Loop runners over shared session
// state.
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/session"
)

// Runner is a unit of pipeline work executed against shared session state.
type Runner interface {
	// Name returns the runner's name.
	Name() string
	// Run executes the unit. State mutations are its only output channel.
	Run(ctx context.Context, state *session.State) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc struct {
	name string
	fn   func(ctx context.Context, state *session.State) error
}

// NewRunnerFunc creates a function-backed runner.
func NewRunnerFunc(name string, fn func(ctx context.Context, state *session.State) error) *RunnerFunc {
	return &RunnerFunc{name: name, fn: fn}
}

func (r *RunnerFunc) Name() string { return r.name }

func (r *RunnerFunc) Run(ctx context.Context, state *session.State) error {
	return r.fn(ctx, state)
}

// Sequential runs its sub-runners in order, stopping at the first error.
type Sequential struct {
	name    string
	runners []Runner
	logger  *zap.Logger
}

// NewSequential creates a sequential runner.
func NewSequential(name string, logger *zap.Logger, runners ...Runner) *Sequential {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequential{name: name, runners: runners, logger: logger}
}

func (s *Sequential) Name() string { return s.name }

func (s *Sequential) Run(ctx context.Context, state *session.State) error {
	for i, runner := range s.runners {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.logger.Debug("sequential step starting",
			zap.String("workflow", s.name),
			zap.String("step", runner.Name()))
		if err := runner.Run(ctx, state); err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", i+1, runner.Name(), err)
		}
	}
	return nil
}
