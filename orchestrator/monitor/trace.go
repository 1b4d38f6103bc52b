// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package monitor

import "time"

// RequestTrace is the lifecycle record of one analysis request.
type RequestTrace struct {
	RequestID    string        `json:"request_id"`
	UserID       string        `json:"user_id,omitempty"`
	Model        string        `json:"model,omitempty"`
	HasImage     bool          `json:"has_image"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time,omitzero"`
	ResponseTime time.Duration `json:"response_time_ms"`
	Success      bool          `json:"success"`
	ErrorCode    string        `json:"error_code,omitempty"`
	TokensUsed   int           `json:"tokens_used"`
	Cost         float64       `json:"cost"`
	RetryCount   int           `json:"retry_count"`
}

// ErrorEvent is one classified failure kept in the recent-errors ring.
type ErrorEvent struct {
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id,omitempty"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome summarizes how a request finished.
type Outcome struct {
	Success    bool
	ErrorCode  string
	TokensUsed int
	Cost       float64
	RetryCount int
}
