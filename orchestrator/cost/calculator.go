// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import "chartsight/core/shared/types"

// Breakdown is the full cost derivation for one inference call. It is
// a derived value with no identity and is never mutated.
type Breakdown struct {
	Model            string                 `json:"model"`
	InputTokens      int                    `json:"input_tokens"`
	OutputTokens     int                    `json:"output_tokens"`
	SpeedMode        types.SpeedMode        `json:"speed_mode"`
	SubscriptionTier types.SubscriptionTier `json:"subscription_tier"`

	InputCost      float64 `json:"input_cost"`
	OutputCost     float64 `json:"output_cost"`
	BaseCost       float64 `json:"base_cost"`
	AfterSpeedCost float64 `json:"after_speed_cost"`
	FinalCost      float64 `json:"final_cost"`
}

// Calculator maps token usage to a cost breakdown using the published
// rate and multiplier tables. Calculate is pure: the same inputs always
// produce the same breakdown.
type Calculator struct {
	pricing *PricingConfig
}

// NewCalculator creates a calculator over the given pricing tables.
// A nil pricing uses the defaults.
func NewCalculator(pricing *PricingConfig) *Calculator {
	if pricing == nil {
		pricing = NewPricingConfig()
	}
	return &Calculator{pricing: pricing}
}

// Calculate derives the cost of a call:
//
//	base  = inputTokens/1000*inputRate + outputTokens/1000*outputRate
//	speed = base * speedMultiplier[mode]
//	final = speed * tierMultiplier[tier]
//
// Unknown models use the wildcard default rates.
func (c *Calculator) Calculate(model string, inputTokens, outputTokens int, mode types.SpeedMode, tier types.SubscriptionTier) Breakdown {
	rates := c.pricing.RatesFor(model)

	inputCost := float64(inputTokens) / 1000 * rates.InputPer1K
	outputCost := float64(outputTokens) / 1000 * rates.OutputPer1K
	base := inputCost + outputCost
	afterSpeed := base * c.pricing.SpeedMultiplier(mode)
	final := afterSpeed * c.pricing.TierMultiplier(tier)

	return Breakdown{
		Model:            model,
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
		SpeedMode:        mode,
		SubscriptionTier: tier,
		InputCost:        inputCost,
		OutputCost:       outputCost,
		BaseCost:         base,
		AfterSpeedCost:   afterSpeed,
		FinalCost:        final,
	}
}

// Pricing returns the underlying pricing tables.
func (c *Calculator) Pricing() *PricingConfig {
	return c.pricing
}
