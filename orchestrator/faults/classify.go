// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package faults

import (
	"context"
	"errors"
	"net"
	"strings"

	"chartsight/core/orchestrator/breaker"
	"chartsight/core/orchestrator/cost"
	"chartsight/core/orchestrator/imaging"
	"chartsight/core/orchestrator/llm"
)

// Classify maps an error to its taxonomy code. The match order is
// fixed: typed errors first, then message signatures, then unknown.
// The same error always classifies the same way.
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}

	// Budget denials are terminal and must never look like
	// infrastructure failures.
	if errors.Is(err, cost.ErrBudgetExceeded) {
		return CodeBudgetExceeded
	}

	// Breaker refusals mean the backend is known-bad right now.
	if errors.Is(err, breaker.ErrOpen) || errors.Is(err, breaker.ErrTooManyCalls) {
		return CodeBackendUnavailable
	}

	// Image pipeline sentinels.
	switch {
	case errors.Is(err, imaging.ErrFileTooLarge):
		return CodeFileTooLarge
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return CodeInvalidFormat
	case errors.Is(err, imaging.ErrCorruptData):
		return CodeCorruptedImage
	case errors.Is(err, imaging.ErrEmptyInput),
		errors.Is(err, imaging.ErrDimensionsTooSmall),
		errors.Is(err, imaging.ErrDimensionsTooLarge):
		return CodeValidationError
	}

	// Typed backend errors carry status and code.
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) {
		switch {
		// Quota first: the backend reports exhausted quota with the
		// same 429 status as transient rate limiting.
		case apiErr.IsQuotaExceededError():
			return CodeQuotaExceeded
		case apiErr.IsRateLimitError():
			return CodeRateLimited
		case apiErr.StatusCode == 402 || apiErr.Code == "insufficient_credits":
			return CodeInsufficientCredits
		case apiErr.IsAuthError():
			return CodeAuthFailed
		case apiErr.IsServerError():
			return CodeBackendUnavailable
		default:
			return CodeVisionAPIError
		}
	}

	// Timeouts from the transport or the context.
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeNetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeNetworkTimeout
	}

	return classifyMessage(err.Error())
}

// signatureRules are checked in order; first match wins.
var signatureRules = []struct {
	substrings []string
	code       Code
}{
	{[]string{"rate limit", "too many requests"}, CodeRateLimited},
	{[]string{"quota"}, CodeQuotaExceeded},
	{[]string{"timeout", "timed out", "deadline exceeded"}, CodeNetworkTimeout},
	{[]string{"unauthorized", "invalid api key", "forbidden"}, CodeAuthFailed},
	{[]string{"insufficient credits", "payment required"}, CodeInsufficientCredits},
	{[]string{"redis", "database", "sql: "}, CodeStorageConnectionError},
	{[]string{"upload"}, CodeUploadFailed},
	{[]string{"connection refused", "no such host", "service unavailable", "bad gateway"}, CodeBackendUnavailable},
	{[]string{"analysis"}, CodeAnalysisFailed},
	{[]string{"image"}, CodeImageProcessingFailed},
	{[]string{"validation"}, CodeValidationError},
}

func classifyMessage(msg string) Code {
	msg = strings.ToLower(msg)
	for _, rule := range signatureRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.code
			}
		}
	}
	return CodeUnknown
}
