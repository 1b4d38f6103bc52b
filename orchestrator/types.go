// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"chartsight/core/orchestrator/cost"
	"chartsight/core/orchestrator/faults"
	"chartsight/core/shared/types"
)

// AnalysisOptions carries per-request knobs for Analyze.
type AnalysisOptions struct {
	// RequestID is caller-supplied or generated when empty.
	RequestID string `json:"request_id,omitempty"`

	// UserID identifies the user for budgeting and tracing.
	UserID string `json:"user_id"`

	// SpeedMode selects the latency/depth tradeoff (default balanced).
	SpeedMode types.SpeedMode `json:"speed_mode,omitempty"`

	// Tier is the user's subscription tier (default free).
	Tier types.SubscriptionTier `json:"tier,omitempty"`

	// ForceModel overrides model selection when set.
	ForceModel string `json:"force_model,omitempty"`

	// GenerateThumbnail asks the image pipeline for a preview.
	GenerateThumbnail bool `json:"generate_thumbnail,omitempty"`
}

// AnalysisData is the verdict payload of a successful analysis.
type AnalysisData struct {
	Verdict          types.Verdict `json:"verdict"`
	Confidence       int           `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
}

// AnalysisMetadata describes how the result was produced.
type AnalysisMetadata struct {
	RequestID        string             `json:"request_id"`
	Model            string             `json:"model,omitempty"`
	TokensUsed       int                `json:"tokens_used"`
	Cost             float64            `json:"cost"`
	SpeedMode        types.SpeedMode    `json:"speed_mode"`
	CircuitState     string             `json:"circuit_state"`
	BudgetStatus     *cost.BudgetStatus `json:"budget_status,omitempty"`
	FallbackUsed     bool               `json:"fallback_used,omitempty"`
	QualityScore     int                `json:"quality_score,omitempty"`
	CompressionRatio float64            `json:"compression_ratio,omitempty"`
	RetryCount       int                `json:"retry_count"`
}

// AnalysisError is the classified failure carried by an unsuccessful
// result.
type AnalysisError struct {
	Code     faults.Code `json:"code"`
	Message  string      `json:"message"`
	Guidance string      `json:"guidance,omitempty"`
	CanRetry bool        `json:"can_retry"`
}

// AnalysisResult is the composed outcome of one Analyze call.
type AnalysisResult struct {
	Success   bool             `json:"success"`
	Data      *AnalysisData    `json:"data,omitempty"`
	Error     *AnalysisError   `json:"error,omitempty"`
	Metadata  AnalysisMetadata `json:"metadata"`
	Thumbnail []byte           `json:"thumbnail,omitempty"`
}
