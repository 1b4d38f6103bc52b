// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"time"

	"chartsight/core/shared/types"
)

// Request is the canonical inference request. Providers translate it to
// their wire shape.
type Request struct {
	// Model is the backend model identifier.
	Model string

	// SystemPrompt carries the analyst persona and output contract.
	SystemPrompt string

	// Prompt is the user-visible analysis instruction.
	Prompt string

	// ImageData is the processed chart image, already encoded (JPEG).
	ImageData []byte

	// ImageMime is the MIME type of ImageData.
	ImageMime string

	// SpeedMode selects the latency/depth tradeoff. For structured
	// responses it maps to a reasoning effort; for chat it adjusts
	// sampling.
	SpeedMode types.SpeedMode

	// MaxTokens caps the generated output (0 = provider default).
	MaxTokens int

	// Temperature in [0.0, 2.0]; negative means provider default.
	Temperature float64
}

// Response is the canonical inference response.
type Response struct {
	// Content is the raw model output text.
	Content string

	// Model is the model that actually served the request.
	Model string

	// StopReason is the normalized finish reason.
	StopReason string

	// Usage is the token accounting reported by the backend. Costs are
	// always charged from these numbers, never from estimates.
	Usage types.TokenUsage

	// Latency is the wall-clock duration of the backend call.
	Latency time.Duration

	// FallbackUsed is set by the client when the response came from the
	// fallback model rather than the requested one.
	FallbackUsed bool
}

// reasoningEffort maps a speed mode to the structured responses
// endpoint's nested reasoning parameter.
func reasoningEffort(mode types.SpeedMode) string {
	switch mode {
	case types.SpeedSuperFast:
		return "minimal"
	case types.SpeedFast:
		return "low"
	case types.SpeedHighAccuracy:
		return "high"
	default:
		return "medium"
	}
}

// mapFinishReason normalizes backend finish reasons.
func mapFinishReason(reason string) string {
	switch reason {
	case "stop", "completed":
		return "stop"
	case "length", "max_output_tokens":
		return "max_tokens"
	case "content_filter":
		return "content_filter"
	default:
		return reason
	}
}
