// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import "errors"

var (
	// ErrBudgetExceeded is returned when a user's daily spend cap is
	// reached. Budget denials are terminal: no external call, no cost
	// record, no retry.
	ErrBudgetExceeded = errors.New("daily budget exceeded")

	// ErrInvalidInput is returned for malformed usage records.
	ErrInvalidInput = errors.New("invalid input")
)
