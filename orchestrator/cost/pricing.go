// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"chartsight/core/shared/types"
)

// ModelPricing contains pricing per 1K tokens for a model
type ModelPricing struct {
	InputPer1K  float64 `json:"input_per_1k"`
	OutputPer1K float64 `json:"output_per_1k"`
}

// PricingConfig holds the published per-model rate table plus the speed
// and tier multiplier tables.
type PricingConfig struct {
	Models           map[string]ModelPricing            `json:"models"`
	SpeedMultipliers map[types.SpeedMode]float64        `json:"speed_multipliers"`
	TierMultipliers  map[types.SubscriptionTier]float64 `json:"tier_multipliers"`
	mu               sync.RWMutex
}

// DefaultPricing contains default pricing for the supported vision
// models. Prices are per 1K tokens in USD. The "*" entry is the
// documented fallback for unknown models.
var DefaultPricing = map[string]ModelPricing{
	"gpt-5":       {InputPer1K: 0.00125, OutputPer1K: 0.01},
	"gpt-5-mini":  {InputPer1K: 0.00025, OutputPer1K: 0.002},
	"gpt-4o":      {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"*":           {InputPer1K: 0.0025, OutputPer1K: 0.01},
}

// DefaultSpeedMultipliers scales cost by the requested latency/depth
// tradeoff.
var DefaultSpeedMultipliers = map[types.SpeedMode]float64{
	types.SpeedSuperFast:    0.8,
	types.SpeedFast:         0.9,
	types.SpeedBalanced:     1.0,
	types.SpeedHighAccuracy: 1.5,
}

// DefaultTierMultipliers applies plan discounts.
var DefaultTierMultipliers = map[types.SubscriptionTier]float64{
	types.TierFree:    1.0,
	types.TierStarter: 0.95,
	types.TierPro:     0.9,
	types.TierElite:   0.85,
}

// NewPricingConfig returns a pricing config populated with the default
// tables.
func NewPricingConfig() *PricingConfig {
	models := make(map[string]ModelPricing, len(DefaultPricing))
	for k, v := range DefaultPricing {
		models[k] = v
	}
	speed := make(map[types.SpeedMode]float64, len(DefaultSpeedMultipliers))
	for k, v := range DefaultSpeedMultipliers {
		speed[k] = v
	}
	tier := make(map[types.SubscriptionTier]float64, len(DefaultTierMultipliers))
	for k, v := range DefaultTierMultipliers {
		tier[k] = v
	}
	return &PricingConfig{
		Models:           models,
		SpeedMultipliers: speed,
		TierMultipliers:  tier,
	}
}

// LoadPricingFromFile loads a JSON pricing override file on top of the
// defaults. Only keys present in the file are replaced.
func LoadPricingFromFile(path string) (*PricingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var override struct {
		Models           map[string]ModelPricing            `json:"models"`
		SpeedMultipliers map[types.SpeedMode]float64        `json:"speed_multipliers"`
		TierMultipliers  map[types.SubscriptionTier]float64 `json:"tier_multipliers"`
	}
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file: %w", err)
	}

	cfg := NewPricingConfig()
	for k, v := range override.Models {
		cfg.Models[k] = v
	}
	for k, v := range override.SpeedMultipliers {
		cfg.SpeedMultipliers[k] = v
	}
	for k, v := range override.TierMultipliers {
		cfg.TierMultipliers[k] = v
	}
	return cfg, nil
}

// RatesFor returns the per-1K rates for a model, falling back to the
// wildcard default for unknown models.
func (c *PricingConfig) RatesFor(model string) ModelPricing {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.Models[model]; ok {
		return p
	}
	return c.Models["*"]
}

// SpeedMultiplier returns the multiplier for a speed mode, defaulting
// to 1.0 for unknown modes.
func (c *PricingConfig) SpeedMultiplier(mode types.SpeedMode) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m, ok := c.SpeedMultipliers[mode]; ok {
		return m
	}
	return 1.0
}

// TierMultiplier returns the multiplier for a subscription tier,
// defaulting to 1.0 for unknown tiers.
func (c *PricingConfig) TierMultiplier(tier types.SubscriptionTier) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m, ok := c.TierMultipliers[tier]; ok {
		return m
	}
	return 1.0
}

// SetModelPricing updates one model's rates at runtime.
func (c *PricingConfig) SetModelPricing(model string, pricing ModelPricing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Models[model] = pricing
}
