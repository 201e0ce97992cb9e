// Package gemini implements llm.Provider against the Google Gemini REST API.
//
// Gemini quirks handled here: the x-goog-api-key auth header, the "model"
// role in place of "assistant", system prompts carried as systemInstruction,
// and function calls delivered as content parts without call IDs.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/llm"
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "gemini-2.5-flash"

// Config holds the Gemini connection settings.
type Config struct {
	APIKey  string
	BaseURL string // Empty means the public endpoint
	Model   string
	Timeout time.Duration
}

// Provider is the Gemini llm.Provider.
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Gemini provider.
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return "gemini" }

func (p *Provider) SupportsNativeFunctionCalling() bool { return true }

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("gemini health check failed: status=%d msg=%s", resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Wire types for the generateContent endpoint.

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations,omitempty"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON Schema
}

type geminiGenerationConfig struct {
	Temperature     float32  `json:"temperature,omitempty"`
	TopP            float32  `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	ResponseID    string               `json:"responseId,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// convertMessages splits the unified history into a systemInstruction and
// Gemini contents.
func convertMessages(msgs []llm.Message) (*geminiContent, []geminiContent) {
	var system *geminiContent
	var contents []geminiContent

	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			system = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		}

		role := string(m.Role)
		if role == "assistant" {
			role = "model"
		}
		if m.Role == llm.RoleTool {
			role = "user"
		}
		content := geminiContent{Role: role}

		if m.Role == llm.RoleTool {
			var response map[string]any
			if err := json.Unmarshal([]byte(m.Content), &response); err != nil {
				response = map[string]any{"result": m.Content}
			}
			content.Parts = append(content.Parts, geminiPart{
				FunctionResponse: &geminiFunctionResponse{
					Name:     m.Name,
					Response: response,
				},
			})
			contents = append(contents, content)
			continue
		}

		if m.Content != "" {
			content.Parts = append(content.Parts, geminiPart{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal(tc.Arguments, &args); err != nil {
				continue
			}
			content.Parts = append(content.Parts, geminiPart{
				FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: args},
			})
		}

		if len(content.Parts) > 0 {
			contents = append(contents, content)
		}
	}
	return system, contents
}

func convertTools(schemas []llm.ToolSchema) []geminiTool {
	if len(schemas) == 0 {
		return nil
	}
	declarations := make([]geminiFunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		var params map[string]any
		if err := json.Unmarshal(s.Parameters, &params); err != nil {
			continue
		}
		declarations = append(declarations, geminiFunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  params,
		})
	}
	if len(declarations) == 0 {
		return nil
	}
	return []geminiTool{{FunctionDeclarations: declarations}}
}

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	system, contents := convertMessages(req.Messages)

	body := geminiRequest{
		Contents:          contents,
		Tools:             convertTools(req.Tools),
		SystemInstruction: system,
	}
	if req.Temperature > 0 || req.TopP > 0 || req.MaxTokens > 0 || len(req.Stop) > 0 {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.NewError(llm.ErrInvalidRequest, "encode request").
			WithCause(err).WithProvider(p.Name())
	}

	model := chooseModel(req, p.cfg.Model)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.setHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, mapError(resp.StatusCode, readErrorMessage(resp.Body), p.Name())
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
		}
	}

	p.logger.Debug("gemini completion",
		zap.String("model", model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("candidates", len(gr.Candidates)))

	return toChatResponse(gr, p.Name(), model), nil
}

func toChatResponse(gr geminiResponse, provider, model string) *llm.ChatResponse {
	choices := make([]llm.ChatChoice, 0, len(gr.Candidates))
	for _, candidate := range gr.Candidates {
		msg := llm.Message{Role: llm.RoleAssistant}

		// Gemini does not issue tool-call IDs; synthesize stable ones so the
		// reply can be threaded back by ID.
		callIndex := 0
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				msg.Content += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				id := fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, callIndex)
				if gr.ResponseID != "" {
					id = fmt.Sprintf("call_%s_%s_%d", gr.ResponseID, part.FunctionCall.Name, callIndex)
				}
				msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
				callIndex++
			}
		}

		choices = append(choices, llm.ChatChoice{
			Index:        candidate.Index,
			FinishReason: candidate.FinishReason,
			Message:      msg,
		})
	}

	resp := &llm.ChatResponse{
		ID:        gr.ResponseID,
		Provider:  provider,
		Model:     model,
		Choices:   choices,
		CreatedAt: time.Now(),
	}
	if gr.UsageMetadata != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}
	return resp
}

func readErrorMessage(body io.Reader) string {
	data, _ := io.ReadAll(body)
	var er geminiErrorResp
	if err := json.Unmarshal(data, &er); err == nil && er.Error.Message != "" {
		return fmt.Sprintf("%s (status: %s)", er.Error.Message, er.Error.Status)
	}
	return string(data)
}

func mapError(status int, msg, provider string) *llm.Error {
	switch status {
	case http.StatusUnauthorized:
		return &llm.Error{Code: llm.ErrUnauthorized, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusForbidden:
		return &llm.Error{Code: llm.ErrForbidden, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusNotFound:
		return &llm.Error{Code: llm.ErrModelNotFound, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusTooManyRequests:
		return &llm.Error{Code: llm.ErrRateLimited, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	case http.StatusBadRequest:
		if strings.Contains(msg, "quota") || strings.Contains(msg, "limit") {
			return &llm.Error{Code: llm.ErrQuotaExceeded, Message: msg, HTTPStatus: status, Provider: provider}
		}
		return &llm.Error{Code: llm.ErrInvalidRequest, Message: msg, HTTPStatus: status, Provider: provider}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return &llm.Error{Code: llm.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: true, Provider: provider}
	default:
		return &llm.Error{Code: llm.ErrUpstreamError, Message: msg, HTTPStatus: status, Retryable: status >= 500, Provider: provider}
	}
}

func chooseModel(req *llm.ChatRequest, defaultModel string) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	if defaultModel != "" {
		return defaultModel
	}
	return DefaultModel
}
