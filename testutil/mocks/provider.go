// Package mocks provides test doubles shared across package tests.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veritaslab/tribunal/llm"
)

// ScriptStep is one scripted provider turn. Either a plain text answer or a
// set of tool calls the fake model "requests".
type ScriptStep struct {
	Content   string
	ToolCalls []llm.ToolCall
	Err       error
}

// Provider is a scripted llm.Provider. Each Completion call consumes the
// next ScriptStep; running past the script is an error so tests notice
// unexpected extra calls.
type Provider struct {
	mu       sync.Mutex
	script   []ScriptStep
	cursor   int
	requests []*llm.ChatRequest

	ProviderName string
	NoTools      bool // Report no native function calling support
}

// NewProvider creates a scripted provider.
func NewProvider(script ...ScriptStep) *Provider {
	return &Provider{script: script, ProviderName: "mock"}
}

// Enqueue appends further steps to the script.
func (p *Provider) Enqueue(steps ...ScriptStep) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, steps...)
}

// Requests returns a copy of every request seen so far.
func (p *Provider) Requests() []*llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*llm.ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// Calls reports how many Completion calls were made.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	reqCopy := *req
	reqCopy.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, &reqCopy)

	if p.cursor >= len(p.script) {
		return nil, fmt.Errorf("mock provider script exhausted after %d calls", len(p.script))
	}
	step := p.script[p.cursor]
	p.cursor++

	if step.Err != nil {
		return nil, step.Err
	}

	finish := "stop"
	if len(step.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &llm.ChatResponse{
		Provider: p.ProviderName,
		Model:    req.Model,
		Choices: []llm.ChatChoice{{
			FinishReason: finish,
			Message: llm.Message{
				Role:      llm.RoleAssistant,
				Content:   step.Content,
				ToolCalls: step.ToolCalls,
			},
		}},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		CreatedAt: time.Now(),
	}, nil
}

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *Provider) Name() string { return p.ProviderName }

func (p *Provider) SupportsNativeFunctionCalling() bool { return !p.NoTools }
