// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"fmt"
	"net/http"
)

// APIError represents an error response from the inference backend.
type APIError struct {
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vision API error (status %d, code %s, type %s): %s",
		e.StatusCode, e.Code, e.Type, e.Message)
}

// IsRateLimitError returns true if this is a rate limit error.
func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Code == "rate_limit_exceeded"
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		e.StatusCode == http.StatusForbidden ||
		e.Code == "invalid_api_key"
}

// IsQuotaExceededError returns true if this is a quota exceeded error.
func (e *APIError) IsQuotaExceededError() bool {
	return e.Code == "quota_exceeded" || e.Code == "insufficient_quota"
}

// IsServerError returns true for backend-side failures.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}
