// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"chartsight/core/shared/types"
)

// ResponsesProvider speaks the structured responses endpoint used by
// newer model families. The speed mode travels as a nested reasoning
// effort parameter instead of a sampling temperature.
type ResponsesProvider struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   HTTPClient
	healthy  bool
	mu       sync.RWMutex
}

// NewResponsesProvider creates a provider for the structured responses
// shape.
func NewResponsesProvider(cfg Config) (*ResponsesProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("backend endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend API key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ResponsesProvider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
		healthy:  true,
	}, nil
}

// Name returns the wire shape identifier.
func (p *ResponsesProvider) Name() string {
	return "responses"
}

// Healthy returns whether the last backend interaction succeeded.
func (p *ResponsesProvider) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *ResponsesProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

// Complete sends one structured responses request.
func (p *ResponsesProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	userContent := []responsesContentPart{
		{Type: "input_text", Text: req.Prompt},
	}
	if len(req.ImageData) > 0 {
		userContent = append(userContent, responsesContentPart{
			Type:     "input_image",
			ImageURL: dataURL(req.ImageMime, req.ImageData),
		})
	}

	input := make([]responsesMessage, 0, 2)
	if req.SystemPrompt != "" {
		input = append(input, responsesMessage{
			Role:    "system",
			Content: []responsesContentPart{{Type: "input_text", Text: req.SystemPrompt}},
		})
	}
	input = append(input, responsesMessage{Role: "user", Content: userContent})

	apiReq := responsesRequest{
		Model:           req.Model,
		Input:           input,
		MaxOutputTokens: maxTokens,
		Reasoning:       &reasoningParams{Effort: reasoningEffort(req.SpeedMode)},
	}

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+"/v1/responses", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.setHealthy(false)
		return nil, fmt.Errorf("vision API error: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			p.setHealthy(false)
		}
		return nil, parseAPIError(resp.StatusCode, body)
	}

	p.setHealthy(true)

	var apiResp responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Response{
		Content:    apiResp.outputText(),
		Model:      apiResp.Model,
		StopReason: mapFinishReason(apiResp.finishReason()),
		Usage:      apiResp.Usage.toTokenUsage(),
		Latency:    time.Since(start),
	}, nil
}

// dataURL encodes image bytes as an inline data URL.
func dataURL(mime string, data []byte) string {
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// parseAPIError parses an API error response body.
func parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return &APIError{StatusCode: statusCode, Message: string(body)}
	}
	return &APIError{
		StatusCode: statusCode,
		Code:       errResp.Error.Code,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
	}
}

// Internal API types (structured responses format)

type responsesRequest struct {
	Model           string             `json:"model"`
	Input           []responsesMessage `json:"input"`
	MaxOutputTokens int                `json:"max_output_tokens,omitempty"`
	Reasoning       *reasoningParams   `json:"reasoning,omitempty"`
}

type reasoningParams struct {
	Effort string `json:"effort"`
}

type responsesMessage struct {
	Role    string                 `json:"role"`
	Content []responsesContentPart `json:"content"`
}

type responsesContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Status string `json:"status"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details,omitempty"`
	Usage responsesUsage `json:"usage"`
}

type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

func (u responsesUsage) toTokenUsage() types.TokenUsage {
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}
	return types.TokenUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      total,
	}
}

// outputText concatenates the message output parts.
func (r *responsesResponse) outputText() string {
	var sb strings.Builder
	for _, out := range r.Output {
		if out.Type != "message" {
			continue
		}
		for _, part := range out.Content {
			if part.Type == "output_text" {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String()
}

// finishReason derives a finish reason from the response status.
func (r *responsesResponse) finishReason() string {
	if r.Status == "incomplete" && r.IncompleteDetails != nil {
		return r.IncompleteDetails.Reason
	}
	return r.Status
}
