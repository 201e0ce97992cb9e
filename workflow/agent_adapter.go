package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/session"
)

// AgentExecutor is what a pipeline agent looks like to the workflow layer.
// Defined here so workflow does not depend on the agent package.
type AgentExecutor interface {
	Name() string
	Run(ctx context.Context, state *session.State) (string, error)
}

// AgentStep wraps an AgentExecutor as a Runner. The agent's final text is
// logged; anything later stages need must be written into session state by
// the agent's tools.
type AgentStep struct {
	agent  AgentExecutor
	logger *zap.Logger
}

// NewAgentStep wraps an agent for use inside a workflow.
func NewAgentStep(agent AgentExecutor, logger *zap.Logger) *AgentStep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentStep{agent: agent, logger: logger}
}

func (s *AgentStep) Name() string { return s.agent.Name() }

func (s *AgentStep) Run(ctx context.Context, state *session.State) error {
	out, err := s.agent.Run(ctx, state)
	if err != nil {
		return err
	}
	if out != "" {
		s.logger.Debug("agent output",
			zap.String("agent", s.agent.Name()),
			zap.Int("chars", len(out)))
	}
	return nil
}
