// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"chartsight/core/shared/types"
)

// DefaultTemperature is the default sampling temperature for the chat
// shape.
const DefaultTemperature = 0.7

// ChatProvider speaks the chat-style messages endpoint used by older
// model families. The image travels as a data-URL content part on the
// user message.
type ChatProvider struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	client   HTTPClient
	healthy  bool
	mu       sync.RWMutex
}

// NewChatProvider creates a provider for the chat-style shape.
func NewChatProvider(cfg Config) (*ChatProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("backend endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("backend API key is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ChatProvider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
		healthy:  true,
	}, nil
}

// Name returns the wire shape identifier.
func (p *ChatProvider) Name() string {
	return "chat"
}

// Healthy returns whether the last backend interaction succeeded.
func (p *ChatProvider) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

func (p *ChatProvider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}

// Complete sends one chat-style request.
func (p *ChatProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	temperature := req.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}

	userContent := []chatContentPart{
		{Type: "text", Text: req.Prompt},
	}
	if len(req.ImageData) > 0 {
		userContent = append(userContent, chatContentPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: dataURL(req.ImageMime, req.ImageData)},
		})
	}

	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userContent})

	apiReq := map[string]any{
		"model":       req.Model,
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint+"/v1/chat/completions", bytes.NewBuffer(reqBody))
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

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	content := ""
	finishReason := "unknown"
	if len(apiResp.Choices) > 0 {
		content = apiResp.Choices[0].Message.Content
		finishReason = mapFinishReason(apiResp.Choices[0].FinishReason)
	}

	return &Response{
		Content:    content,
		Model:      apiResp.Model,
		StopReason: finishReason,
		Usage: types.TokenUsage{
			PromptTokens:     apiResp.Usage.PromptTokens,
			CompletionTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:      apiResp.Usage.TotalTokens,
		},
		Latency: time.Since(start),
	}, nil
}

// Internal API types (chat completions format)

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string for system, []chatContentPart for user
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
