// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"sync"

	"chartsight/core/shared/types"
)

// MockProvider is a scriptable in-memory provider for tests and local
// development.
type MockProvider struct {
	// NameValue is returned by Name (default "mock").
	NameValue string

	// CompleteFunc handles each request. Nil returns a canned verdict.
	CompleteFunc func(ctx context.Context, req Request) (*Response, error)

	mu    sync.Mutex
	calls []Request
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// Healthy implements Provider.
func (m *MockProvider) Healthy() bool {
	return true
}

// Complete implements Provider, recording every request it sees.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Response{
		Content:    `{"verdict": "fire", "confidence": 72, "reasoning": "mock analysis"}`,
		Model:      req.Model,
		StopReason: "stop",
		Usage:      types.TokenUsage{PromptTokens: 800, CompletionTokens: 200, TotalTokens: 1000},
	}, nil
}

// Calls returns a copy of the requests seen so far.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
