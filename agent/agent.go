// Package agent implements the prompt-driven, tool-calling agent that every
// pipeline stage is built from. An agent renders its instruction template
// against session state, then drives the model→tool→model loop until the
// model answers without requesting tools.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/internal/metrics"
	"github.com/veritaslab/tribunal/llm"
	"github.com/veritaslab/tribunal/session"
	"github.com/veritaslab/tribunal/tools"
)

// DefaultMaxToolRounds bounds the model→tool→model loop of a single run.
const DefaultMaxToolRounds = 10

// Config describes one agent.
type Config struct {
	Name        string
	Description string
	Instruction string   // Template with {field?} placeholders
	Model       string   // Model identifier passed to the provider
	Tools       []string // Names of registered tools this agent may call

	MaxToolRounds int // 0 means DefaultMaxToolRounds
	Temperature   float32
}

// Agent executes one pipeline stage.
type Agent struct {
	cfg       Config
	provider  llm.Provider
	registry  *tools.Registry
	executor  *tools.Executor
	collector *metrics.Collector
	logger    *zap.Logger
}

// New creates an agent. collector may be nil.
func New(cfg Config, provider llm.Provider, registry *tools.Registry, collector *metrics.Collector, logger *zap.Logger) (*Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("agent %s: provider is required", cfg.Name)
	}
	if len(cfg.Tools) > 0 && registry == nil {
		return nil, fmt.Errorf("agent %s: tools configured but no registry", cfg.Name)
	}
	for _, name := range cfg.Tools {
		if !registry.Has(name) {
			return nil, fmt.Errorf("agent %s: tool %s not registered", cfg.Name, name)
		}
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = DefaultMaxToolRounds
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &Agent{
		cfg:       cfg,
		provider:  provider,
		registry:  registry,
		collector: collector,
		logger:    logger.With(zap.String("agent", cfg.Name)),
	}
	if registry != nil {
		a.executor = tools.NewExecutor(registry, collector, a.logger)
	}
	return a, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.cfg.Name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.cfg.Description }

// Run renders the instruction against state and converses with the model,
// executing requested tools, until the model stops calling tools or the
// round cap is hit. It returns the model's final text.
func (a *Agent) Run(ctx context.Context, state *session.State) (string, error) {
	ctx = session.NewContext(ctx, state)

	system := RenderInstruction(a.cfg.Instruction, state)
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: "Carry out your instructions."},
	}

	req := &llm.ChatRequest{
		TraceID:     state.ID(),
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		Tools:       a.registrySchemas(),
	}
	if len(req.Tools) > 0 && !a.provider.SupportsNativeFunctionCalling() {
		return "", fmt.Errorf("agent %s: provider %s does not support function calling", a.cfg.Name, a.provider.Name())
	}

	for round := 1; round <= a.cfg.MaxToolRounds; round++ {
		callReq := *req
		callReq.Messages = messages

		start := time.Now()
		resp, err := a.provider.Completion(ctx, &callReq)
		status := "success"
		if err != nil {
			status = "error"
		}
		var usage metrics.LLMUsage
		if resp != nil {
			usage = metrics.LLMUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
			}
		}
		a.collector.RecordLLMRequest(a.provider.Name(), a.cfg.Model, status, time.Since(start), usage)
		if err != nil {
			return "", fmt.Errorf("agent %s: completion failed at round %d: %w", a.cfg.Name, round, err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("agent %s: empty response from provider", a.cfg.Name)
		}

		choice := resp.Choices[0]
		toolCalls := ensureCallIDs(choice.Message.ToolCalls)

		if len(toolCalls) == 0 {
			a.logger.Info("agent run completed",
				zap.Int("rounds", round),
				zap.String("finish_reason", choice.FinishReason))
			return choice.Message.Content, nil
		}

		a.logger.Info("executing tool calls", zap.Int("count", len(toolCalls)))
		results := a.executor.Execute(ctx, toolCalls)

		assistant := choice.Message
		assistant.ToolCalls = toolCalls
		messages = append(messages, assistant)
		for _, result := range results {
			if result.IsError() {
				a.logger.Warn("tool call failed",
					zap.String("tool", result.Name),
					zap.String("error", result.Error))
			}
			messages = append(messages, result.ToMessage())
		}
	}

	return "", fmt.Errorf("agent %s: tool loop exceeded %d rounds", a.cfg.Name, a.cfg.MaxToolRounds)
}

func (a *Agent) registrySchemas() []llm.ToolSchema {
	if a.registry == nil || len(a.cfg.Tools) == 0 {
		return nil
	}
	return a.registry.Schemas(a.cfg.Tools...)
}

// ensureCallIDs fills in IDs for providers that omit them (Gemini function
// calls carry no call ID).
func ensureCallIDs(calls []llm.ToolCall) []llm.ToolCall {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
	return calls
}
