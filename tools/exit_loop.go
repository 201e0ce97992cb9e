package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
	"github.com/veritaslab/tribunal/session"
)

// ExitLoopName is the tool the review stage calls to end the research loop.
const ExitLoopName = "exit_loop"

// NewExitLoopTool returns the tool that raises the session's escalation
// flag. The loop controller checks the flag after each round.
func NewExitLoopTool(logger *zap.Logger) (Func, Metadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		state, ok := session.FromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("no session state in context")
		}
		state.Escalate()
		logger.Info("loop exit requested", zap.String("session", state.ID()))
		return successStatus, nil
	}

	meta := Metadata{
		Schema: llm.ToolSchema{
			Name:        ExitLoopName,
			Description: "End the research loop once the evidence is sufficient and balanced.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
	}
	return fn, meta
}
