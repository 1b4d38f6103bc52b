// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"fmt"
	"strings"

	"chartsight/core/shared/logger"
)

// ClientConfig configures the shape-selecting client.
type ClientConfig struct {
	// Backend is the shared endpoint/credential configuration.
	Backend Config

	// DefaultModel is used when a request carries no model.
	DefaultModel string

	// FallbackModel is tried once when the primary call fails. Empty
	// disables fallback.
	FallbackModel string
}

// Client routes each request to the wire shape its model family
// requires and applies the single-fallback policy. It does not retry;
// retry decisions belong to the caller.
type Client struct {
	config    ClientConfig
	responses Provider
	chat      Provider
	log       *logger.Logger
}

// NewClient builds a client with both wire shapes over the same
// backend.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-5"
	}
	if log == nil {
		log = logger.New("llm-client")
	}

	responses, err := NewResponsesProvider(cfg.Backend)
	if err != nil {
		return nil, err
	}
	chat, err := NewChatProvider(cfg.Backend)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:    cfg,
		responses: responses,
		chat:      chat,
		log:       log,
	}, nil
}

// NewClientWithProviders builds a client over explicit providers.
// Used by tests and by deployments with custom transports.
func NewClientWithProviders(cfg ClientConfig, responses, chat Provider, log *logger.Logger) *Client {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-5"
	}
	if log == nil {
		log = logger.New("llm-client")
	}
	return &Client{config: cfg, responses: responses, chat: chat, log: log}
}

// usesResponsesShape reports whether a model family speaks the
// structured responses endpoint.
func usesResponsesShape(model string) bool {
	return strings.HasPrefix(model, "gpt-5") || strings.HasPrefix(model, "o")
}

// providerFor selects the wire shape for a model.
func (c *Client) providerFor(model string) Provider {
	if usesResponsesShape(model) {
		return c.responses
	}
	return c.chat
}

// Complete sends the request to its model's shape. If the call fails
// and a fallback model is configured, exactly one more attempt is made
// on the fallback model's shape; a response served that way is marked
// FallbackUsed.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.config.DefaultModel
	}

	provider := c.providerFor(req.Model)
	resp, err := provider.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	fallback := c.config.FallbackModel
	if fallback == "" || fallback == req.Model {
		return nil, err
	}

	c.log.Warn("", "", "primary model failed, trying fallback", map[string]interface{}{
		"primary_model":  req.Model,
		"fallback_model": fallback,
		"shape":          provider.Name(),
		"error":          err.Error(),
	})

	fbReq := req
	fbReq.Model = fallback
	fbResp, fbErr := c.providerFor(fallback).Complete(ctx, fbReq)
	if fbErr != nil {
		return nil, fmt.Errorf("primary model %s failed (%v); fallback model %s failed: %w",
			req.Model, err, fallback, fbErr)
	}

	fbResp.FallbackUsed = true
	return fbResp, nil
}

// Healthy reports true when either shape's last backend interaction
// succeeded.
func (c *Client) Healthy() bool {
	return c.responses.Healthy() || c.chat.Healthy()
}
