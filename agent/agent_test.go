package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
	"github.com/veritaslab/tribunal/session"
	"github.com/veritaslab/tribunal/testutil/mocks"
	"github.com/veritaslab/tribunal/tools"
)

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry(zap.NewNop())

	appendFn, appendMeta := tools.NewAppendToStateTool(zap.NewNop())
	require.NoError(t, r.Register(tools.AppendToStateName, appendFn, appendMeta))

	exitFn, exitMeta := tools.NewExitLoopTool(zap.NewNop())
	require.NoError(t, r.Register(tools.ExitLoopName, exitFn, exitMeta))

	return r
}

func TestNewValidation(t *testing.T) {
	provider := mocks.NewProvider()
	registry := newTestRegistry(t)

	_, err := New(Config{}, provider, registry, nil, zap.NewNop())
	assert.ErrorContains(t, err, "name is required")

	_, err = New(Config{Name: "a"}, nil, registry, nil, zap.NewNop())
	assert.ErrorContains(t, err, "provider is required")

	_, err = New(Config{Name: "a", Tools: []string{"ghost"}}, provider, registry, nil, zap.NewNop())
	assert.ErrorContains(t, err, "not registered")
}

func TestRunPlainAnswer(t *testing.T) {
	provider := mocks.NewProvider(mocks.ScriptStep{Content: "done"})
	a, err := New(Config{
		Name:        "plain",
		Instruction: "SUBJECT: {PROMPT?}",
		Model:       "test-model",
	}, provider, nil, nil, zap.NewNop())
	require.NoError(t, err)

	state := session.New()
	state.Set("PROMPT", "Cleopatra")

	out, err := a.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.RoleSystem, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[0].Content, "SUBJECT: Cleopatra")
	assert.Equal(t, "test-model", reqs[0].Model)
}

func TestRunExecutesToolsThenFinishes(t *testing.T) {
	provider := mocks.NewProvider(
		mocks.ScriptStep{ToolCalls: []llm.ToolCall{{
			Name:      tools.AppendToStateName,
			Arguments: json.RawMessage(`{"field":"pos_data","response":"a great deed"}`),
		}}},
		mocks.ScriptStep{Content: "recorded"},
	)

	a, err := New(Config{
		Name:        "researcher",
		Instruction: "find things",
		Tools:       []string{tools.AppendToStateName},
	}, provider, newTestRegistry(t), nil, zap.NewNop())
	require.NoError(t, err)

	state := session.New()
	out, err := a.Run(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "recorded", out)
	assert.Equal(t, []string{"a great deed"}, state.GetList("pos_data"))

	// Second request must replay the assistant tool call and its result.
	reqs := provider.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Equal(t, llm.RoleAssistant, msgs[len(msgs)-2].Role)
	assert.Equal(t, llm.RoleTool, msgs[len(msgs)-1].Role)
	assert.NotEmpty(t, msgs[len(msgs)-1].ToolCallID)
}

func TestRunToolSchemasOnlyForConfiguredTools(t *testing.T) {
	provider := mocks.NewProvider(mocks.ScriptStep{Content: "ok"})
	a, err := New(Config{
		Name:        "judge",
		Instruction: "judge",
		Tools:       []string{tools.ExitLoopName},
	}, provider, newTestRegistry(t), nil, zap.NewNop())
	require.NoError(t, err)

	_, err = a.Run(context.Background(), session.New())
	require.NoError(t, err)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, tools.ExitLoopName, reqs[0].Tools[0].Name)
}

func TestRunRejectsProviderWithoutFunctionCalling(t *testing.T) {
	provider := mocks.NewProvider(mocks.ScriptStep{Content: "ok"})
	provider.NoTools = true

	a, err := New(Config{
		Name:        "researcher",
		Instruction: "find",
		Tools:       []string{tools.ExitLoopName},
	}, provider, newTestRegistry(t), nil, zap.NewNop())
	require.NoError(t, err)

	_, err = a.Run(context.Background(), session.New())
	assert.ErrorContains(t, err, "does not support function calling")
}

func TestRunPropagatesProviderError(t *testing.T) {
	provider := mocks.NewProvider(mocks.ScriptStep{Err: fmt.Errorf("upstream down")})
	a, err := New(Config{Name: "x", Instruction: "i"}, provider, nil, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = a.Run(context.Background(), session.New())
	assert.ErrorContains(t, err, "upstream down")
}

func TestRunToolLoopCap(t *testing.T) {
	loopCall := mocks.ScriptStep{ToolCalls: []llm.ToolCall{{
		Name:      tools.AppendToStateName,
		Arguments: json.RawMessage(`{"field":"pos_data","response":"again"}`),
	}}}
	provider := mocks.NewProvider(loopCall, loopCall, loopCall, loopCall)

	a, err := New(Config{
		Name:          "looper",
		Instruction:   "loop",
		Tools:         []string{tools.AppendToStateName},
		MaxToolRounds: 3,
	}, provider, newTestRegistry(t), nil, zap.NewNop())
	require.NoError(t, err)

	_, err = a.Run(context.Background(), session.New())
	assert.ErrorContains(t, err, "exceeded 3 rounds")
	assert.Equal(t, 3, provider.Calls())
}
