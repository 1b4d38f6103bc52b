// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package types

import "fmt"

// SpeedMode is the caller-selectable tradeoff between response latency,
// analysis depth, and cost for an inference call.
type SpeedMode string

const (
	SpeedSuperFast    SpeedMode = "super_fast"
	SpeedFast         SpeedMode = "fast"
	SpeedBalanced     SpeedMode = "balanced"
	SpeedHighAccuracy SpeedMode = "high_accuracy"
)

// ValidSpeedModes lists every accepted speed mode.
var ValidSpeedModes = []SpeedMode{SpeedSuperFast, SpeedFast, SpeedBalanced, SpeedHighAccuracy}

// Validate returns an error if the speed mode is not one of the
// accepted values.
func (m SpeedMode) Validate() error {
	for _, v := range ValidSpeedModes {
		if m == v {
			return nil
		}
	}
	return fmt.Errorf("invalid speed mode %q", string(m))
}

// SubscriptionTier identifies a user's plan for budget caps and cost
// multipliers.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierStarter SubscriptionTier = "starter"
	TierPro     SubscriptionTier = "pro"
	TierElite   SubscriptionTier = "elite"
)

// Verdict is the closed set of chart-analysis outcomes.
type Verdict string

const (
	// VerdictDiamond marks a high-quality setup worth taking.
	VerdictDiamond Verdict = "Diamond"
	// VerdictFire marks a risky but tradeable setup.
	VerdictFire Verdict = "Fire"
	// VerdictSkull marks a setup to avoid.
	VerdictSkull Verdict = "Skull"
)

// ValidVerdicts lists every accepted verdict.
var ValidVerdicts = []Verdict{VerdictDiamond, VerdictFire, VerdictSkull}

// Validate returns an error if the verdict is outside the closed set.
func (v Verdict) Validate() error {
	for _, valid := range ValidVerdicts {
		if v == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid verdict %q", string(v))
}

// FileMetadata describes a caller-supplied upload. The bytes themselves
// travel separately; storage and CDN delivery are external collaborators.
type FileMetadata struct {
	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
}

// TokenUsage is the token accounting actually returned by a completed
// inference call. Cost is only ever computed from these values, never
// from estimates.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
