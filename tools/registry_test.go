package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
)

func echoTool(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return args, nil
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	err := r.Register("echo", echoTool, Metadata{})
	require.NoError(t, err)

	fn, meta, err := r.Get("echo")
	require.NoError(t, err)
	assert.NotNil(t, fn)
	assert.Equal(t, "echo", meta.Schema.Name)
	assert.Equal(t, 30*time.Second, meta.Timeout)
	assert.True(t, r.Has("echo"))
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register("echo", echoTool, Metadata{}))
	assert.Error(t, r.Register("echo", echoTool, Metadata{}))
}

func TestRegisterNameMismatchFails(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	err := r.Register("echo", echoTool, Metadata{
		Schema: llm.ToolSchema{Name: "other"},
	})
	assert.Error(t, err)
}

func TestSchemasPreserveOrder(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register("a", echoTool, Metadata{}))
	require.NoError(t, r.Register("b", echoTool, Metadata{}))

	schemas := r.Schemas("b", "a", "missing")
	require.Len(t, schemas, 2)
	assert.Equal(t, "b", schemas[0].Name)
	assert.Equal(t, "a", schemas[1].Name)
}

func TestExecutorSuccess(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register("echo", echoTool, Metadata{}))
	e := NewExecutor(r, nil, zap.NewNop())

	results := e.Execute(context.Background(), []llm.ToolCall{
		{ID: "call-1", Name: "echo", Arguments: json.RawMessage(`{"a":1}`)},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].IsError())
	assert.JSONEq(t, `{"a":1}`, string(results[0].Result))

	msg := results[0].ToMessage()
	assert.Equal(t, llm.RoleTool, msg.Role)
	assert.Equal(t, "call-1", msg.ToolCallID)
}

func TestExecutorToolNotFound(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	e := NewExecutor(r, nil, zap.NewNop())

	result := e.ExecuteOne(context.Background(), llm.ToolCall{ID: "c", Name: "ghost"})
	assert.True(t, result.IsError())
	assert.Contains(t, result.Error, "not found")
}

func TestExecutorToolError(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	failing := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		return nil, fmt.Errorf("boom")
	}
	require.NoError(t, r.Register("fail", failing, Metadata{}))
	e := NewExecutor(r, nil, zap.NewNop())

	result := e.ExecuteOne(context.Background(), llm.ToolCall{ID: "c", Name: "fail"})
	assert.True(t, result.IsError())
	assert.Equal(t, "boom", result.Error)
	assert.Contains(t, result.ToMessage().Content, "Error: boom")
}

func TestExecutorInvalidArguments(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register("echo", echoTool, Metadata{}))
	e := NewExecutor(r, nil, zap.NewNop())

	result := e.ExecuteOne(context.Background(), llm.ToolCall{
		ID: "c", Name: "echo", Arguments: json.RawMessage(`{not json`),
	})
	assert.True(t, result.IsError())
	assert.Contains(t, result.Error, "invalid arguments")
}

func TestExecutorTimeout(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	slow := func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		select {
		case <-time.After(5 * time.Second):
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	require.NoError(t, r.Register("slow", slow, Metadata{Timeout: 50 * time.Millisecond}))
	e := NewExecutor(r, nil, zap.NewNop())

	start := time.Now()
	result := e.ExecuteOne(context.Background(), llm.ToolCall{ID: "c", Name: "slow"})
	assert.True(t, result.IsError())
	assert.Contains(t, result.Error, "timeout")
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecutorRateLimit(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register("limited", echoTool, Metadata{
		RateLimit: &RateLimit{MaxCalls: 2, Window: time.Hour},
	}))
	e := NewExecutor(r, nil, zap.NewNop())

	ctx := context.Background()
	assert.False(t, e.ExecuteOne(ctx, llm.ToolCall{ID: "1", Name: "limited"}).IsError())
	assert.False(t, e.ExecuteOne(ctx, llm.ToolCall{ID: "2", Name: "limited"}).IsError())

	third := e.ExecuteOne(ctx, llm.ToolCall{ID: "3", Name: "limited"})
	assert.True(t, third.IsError())
	assert.Contains(t, third.Error, "rate limit")
}

func TestExecutorParallelOrder(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register("echo", echoTool, Metadata{}))
	e := NewExecutor(r, nil, zap.NewNop())

	calls := make([]llm.ToolCall, 8)
	for i := range calls {
		calls[i] = llm.ToolCall{
			ID:        fmt.Sprintf("call-%d", i),
			Name:      "echo",
			Arguments: json.RawMessage(fmt.Sprintf(`{"i":%d}`, i)),
		}
	}

	results := e.Execute(context.Background(), calls)
	require.Len(t, results, len(calls))
	for i, result := range results {
		assert.Equal(t, fmt.Sprintf("call-%d", i), result.ToolCallID)
		assert.JSONEq(t, fmt.Sprintf(`{"i":%d}`, i), string(result.Result))
	}
}
