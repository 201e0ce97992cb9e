package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veritaslab/tribunal/session"
)

// Parallel runs its sub-runners concurrently against the same state and
// joins on all of them before returning. Sub-runners are expected to write
// disjoint state fields; State is still safe for overlapping access.
type Parallel struct {
	name    string
	runners []Runner
	logger  *zap.Logger
}

// NewParallel creates a parallel runner.
func NewParallel(name string, logger *zap.Logger, runners ...Runner) *Parallel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parallel{name: name, runners: runners, logger: logger}
}

func (p *Parallel) Name() string { return p.name }

func (p *Parallel) Run(ctx context.Context, state *session.State) error {
	if len(p.runners) == 0 {
		return fmt.Errorf("parallel workflow %s has no runners", p.name)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, runner := range p.runners {
		runner := runner
		g.Go(func() error {
			p.logger.Debug("parallel branch starting",
				zap.String("workflow", p.name),
				zap.String("branch", runner.Name()))
			if err := runner.Run(gctx, state); err != nil {
				return fmt.Errorf("branch %s failed: %w", runner.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
