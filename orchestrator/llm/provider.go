// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"net/http"
	"time"
)

// DefaultTimeout is the default HTTP timeout for backend calls.
const DefaultTimeout = 120 * time.Second

// DefaultMaxTokens is the default max output tokens for completions.
const DefaultMaxTokens = 4096

// Provider is the interface both backend request shapes implement.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name identifies the wire shape ("responses" or "chat").
	Name() string

	// Complete sends one inference request and returns the canonical
	// response. The context carries cancellation and timeout.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Healthy reports the provider's last-known health.
	Healthy() bool
}

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config contains shared configuration for the backend providers.
type Config struct {
	Endpoint string        // Required: backend base URL
	APIKey   string        // Required: bearer token
	Timeout  time.Duration // Optional: HTTP timeout (default: 120s)
}
