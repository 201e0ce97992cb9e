package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
	"github.com/veritaslab/tribunal/session"
)

// AppendToStateName is the tool name agents use to record findings.
const AppendToStateName = "append_to_state"

type appendToStateArgs struct {
	Field    string `json:"field"`
	Response string `json:"response"`
}

type statusResponse struct {
	Status string `json:"status"`
}

var successStatus, _ = json.Marshal(statusResponse{Status: "success"})

// NewAppendToStateTool returns the tool that appends a value to a session
// state field. A prior scalar value is normalized to a one-element list
// before the append, so repeated calls accumulate in call order.
func NewAppendToStateTool(logger *zap.Logger) (Func, Metadata) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fn := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var params appendToStateArgs
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid append_to_state arguments: %w", err)
		}
		if params.Field == "" {
			return nil, fmt.Errorf("field is required")
		}

		state, ok := session.FromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("no session state in context")
		}

		state.Append(params.Field, params.Response)
		logger.Info("appended to state",
			zap.String("session", state.ID()),
			zap.String("field", params.Field),
			zap.Int("entries", state.Len(params.Field)))
		return successStatus, nil
	}

	meta := Metadata{
		Schema: llm.ToolSchema{
			Name:        AppendToStateName,
			Description: "Append new output to an existing state field (pos_data, neg_data, etc.).",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"field": {"type": "string", "description": "State field to append to"},
					"response": {"type": "string", "description": "Text to record"}
				},
				"required": ["field", "response"]
			}`),
		},
	}
	return fn, meta
}
