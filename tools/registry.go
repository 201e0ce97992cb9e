// Package tools implements the tool registry, the executor that runs model
// tool calls, and the pipeline's built-in tools (append_to_state, write_file,
// wikipedia, exit_loop).
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veritaslab/tribunal/internal/metrics"
	"github.com/veritaslab/tribunal/llm"
)

// Func is the tool function signature. Arguments arrive as raw JSON matching
// the tool's schema; the result is raw JSON handed back to the model.
type Func func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Metadata describes a registered tool.
type Metadata struct {
	Schema    llm.ToolSchema // JSON Schema surface shown to the model
	Timeout   time.Duration  // Execution timeout (default 30s)
	RateLimit *RateLimit     // Optional per-tool rate limit
}

// RateLimit caps how often a tool may run.
type RateLimit struct {
	MaxCalls int           // Calls allowed per window
	Window   time.Duration // Window duration
}

// Result is one tool execution outcome.
type Result struct {
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Result     json.RawMessage `json:"result"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// IsError reports whether the execution failed.
func (r Result) IsError() bool { return r.Error != "" }

// ToMessage converts the result into a tool message for the next model turn.
func (r Result) ToMessage() llm.Message {
	msg := llm.Message{
		Role:       llm.RoleTool,
		ToolCallID: r.ToolCallID,
		Name:       r.Name,
	}
	if r.Error != "" {
		msg.Content = fmt.Sprintf("Error: %s", r.Error)
	} else {
		msg.Content = string(r.Result)
	}
	return msg
}

// Registry stores tools by name.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Func
	metadata map[string]Metadata
	limiters map[string]*rate.Limiter
	logger   *zap.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:    make(map[string]Func),
		metadata: make(map[string]Metadata),
		limiters: make(map[string]*rate.Limiter),
		logger:   logger,
	}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(name string, fn Func, meta Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	if meta.Schema.Name == "" {
		meta.Schema.Name = name
	}
	if meta.Schema.Name != name {
		return fmt.Errorf("tool name mismatch: schema.Name=%s, register name=%s", meta.Schema.Name, name)
	}
	if meta.Timeout == 0 {
		meta.Timeout = 30 * time.Second
	}

	r.tools[name] = fn
	r.metadata[name] = meta
	if meta.RateLimit != nil && meta.RateLimit.MaxCalls > 0 {
		limit := rate.Every(meta.RateLimit.Window / time.Duration(meta.RateLimit.MaxCalls))
		r.limiters[name] = rate.NewLimiter(limit, meta.RateLimit.MaxCalls)
	}

	r.logger.Info("tool registered", zap.String("name", name), zap.Duration("timeout", meta.Timeout))
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Func, Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.tools[name]
	if !ok {
		return nil, Metadata{}, fmt.Errorf("tool %s not found", name)
	}
	return fn, r.metadata[name], nil
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Schemas returns the JSON schemas of the named tools, preserving order.
// Unknown names are skipped.
func (r *Registry) Schemas(names ...string) []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]llm.ToolSchema, 0, len(names))
	for _, name := range names {
		if meta, ok := r.metadata[name]; ok {
			schemas = append(schemas, meta.Schema)
		}
	}
	return schemas
}

// allow consumes a rate-limit token for the tool, if it has a limiter.
func (r *Registry) allow(name string) error {
	r.mu.RLock()
	limiter, ok := r.limiters[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if !limiter.Allow() {
		return fmt.Errorf("rate limit exceeded for tool %s", name)
	}
	return nil
}

// Executor runs model tool calls against a registry.
type Executor struct {
	registry  *Registry
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewExecutor creates a tool executor. collector may be nil.
func NewExecutor(registry *Registry, collector *metrics.Collector, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry:  registry,
		collector: collector,
		logger:    logger,
	}
}

// Execute runs all calls concurrently and returns results in call order.
func (e *Executor) Execute(ctx context.Context, calls []llm.ToolCall) []Result {
	results := make([]Result, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c llm.ToolCall) {
			defer wg.Done()
			results[idx] = e.ExecuteOne(ctx, c)
		}(i, call)
	}
	wg.Wait()

	return results
}

// ExecuteOne runs a single call with the tool's timeout applied.
func (e *Executor) ExecuteOne(ctx context.Context, call llm.ToolCall) Result {
	start := time.Now()
	result := Result{ToolCallID: call.ID, Name: call.Name}

	finish := func(r Result) Result {
		r.Duration = time.Since(start)
		status := "success"
		if r.Error != "" {
			status = "error"
		}
		e.collector.RecordToolExecution(call.Name, status, r.Duration)
		return r
	}

	fn, meta, err := e.registry.Get(call.Name)
	if err != nil {
		result.Error = fmt.Sprintf("tool not found: %s", err.Error())
		e.logger.Error("tool not found", zap.String("name", call.Name), zap.Error(err))
		return finish(result)
	}

	if err := e.registry.allow(call.Name); err != nil {
		result.Error = err.Error()
		e.logger.Warn("tool rate limited", zap.String("name", call.Name))
		return finish(result)
	}

	if len(call.Arguments) > 0 && !json.Valid(call.Arguments) {
		result.Error = fmt.Sprintf("invalid arguments for tool %s", call.Name)
		e.logger.Error("invalid tool arguments", zap.String("name", call.Name))
		return finish(result)
	}

	execCtx, cancel := context.WithTimeout(ctx, meta.Timeout)
	defer cancel()

	type outcome struct {
		res json.RawMessage
		err error
	}
	// Buffered so the goroutine can exit even when nobody receives.
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(execCtx, call.Arguments)
		select {
		case done <- outcome{res, err}:
		case <-execCtx.Done():
		}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			result.Error = out.err.Error()
			e.logger.Error("tool execution failed",
				zap.String("name", call.Name), zap.Error(out.err))
		} else {
			result.Result = out.res
			e.logger.Debug("tool executed",
				zap.String("name", call.Name), zap.Duration("duration", time.Since(start)))
		}
	case <-execCtx.Done():
		result.Error = fmt.Sprintf("execution timeout after %s", meta.Timeout)
		e.logger.Error("tool execution timeout",
			zap.String("name", call.Name), zap.Duration("timeout", meta.Timeout))
	}

	return finish(result)
}
