// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the ChartSight Orchestrator
// service.
//
// The Orchestrator accepts chart image uploads, runs them through the
// image pipeline, sends them to the vision inference backend behind a
// circuit breaker, enforces per-user daily spend caps, and returns a
// normalized trading verdict.
//
// Usage:
//
//	./orchestrator
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8082)
//	VISION_API_ENDPOINT - inference backend base URL
//	VISION_API_KEY - inference backend credential
//	VISION_MODEL - primary model (default: gpt-5)
//	VISION_FALLBACK_MODEL - fallback model (default: gpt-4o)
//	REDIS_ADDR - shared budget store (optional)
//	DATABASE_URL - PostgreSQL usage record store (optional)
//	PRICING_FILE - JSON pricing override file (optional)
//	CHARTSIGHT_CONFIG_FILE - YAML config file (optional)
package main

import (
	"chartsight/core/orchestrator"
)

func main() {
	orchestrator.Run()
}
