// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

// Package types holds the small cross-package vocabulary of the
// ChartSight core: speed modes, subscription tiers, analysis verdicts,
// upload metadata, and token usage. It has no dependencies so every
// other package can import it freely.
package types
