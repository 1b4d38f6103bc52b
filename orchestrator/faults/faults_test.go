// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package faults

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsight/core/orchestrator/breaker"
	"chartsight/core/orchestrator/cost"
	"chartsight/core/orchestrator/imaging"
	"chartsight/core/orchestrator/llm"
)

func TestClassifyTypedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"budget exceeded", cost.ErrBudgetExceeded, CodeBudgetExceeded},
		{"wrapped budget exceeded", fmt.Errorf("check failed: %w", cost.ErrBudgetExceeded), CodeBudgetExceeded},
		{"breaker open", breaker.ErrOpen, CodeBackendUnavailable},
		{"breaker half-open saturated", breaker.ErrTooManyCalls, CodeBackendUnavailable},
		{"file too large", imaging.ErrFileTooLarge, CodeFileTooLarge},
		{"unsupported format", imaging.ErrUnsupportedFormat, CodeInvalidFormat},
		{"corrupt data", imaging.ErrCorruptData, CodeCorruptedImage},
		{"empty input", imaging.ErrEmptyInput, CodeValidationError},
		{"tiny dimensions", imaging.ErrDimensionsTooSmall, CodeValidationError},
		{"rate limited", &llm.APIError{StatusCode: 429}, CodeRateLimited},
		{"quota exceeded on 429", &llm.APIError{StatusCode: 429, Code: "insufficient_quota"}, CodeQuotaExceeded},
		{"auth failed", &llm.APIError{StatusCode: 401}, CodeAuthFailed},
		{"insufficient credits", &llm.APIError{StatusCode: 402}, CodeInsufficientCredits},
		{"server error", &llm.APIError{StatusCode: 503}, CodeBackendUnavailable},
		{"other api error", &llm.APIError{StatusCode: 400, Message: "bad request"}, CodeVisionAPIError},
		{"context deadline", context.DeadlineExceeded, CodeNetworkTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyQuotaBeforeRateLimitOnCode(t *testing.T) {
	// A quota code without the 429 status still classifies as quota.
	err := &llm.APIError{StatusCode: 400, Code: "quota_exceeded"}
	assert.Equal(t, CodeQuotaExceeded, Classify(err))
}

func TestClassifyMessageSignatures(t *testing.T) {
	tests := []struct {
		msg  string
		want Code
	}{
		{"Rate limit reached for requests", CodeRateLimited},
		{"monthly quota exhausted", CodeQuotaExceeded},
		{"dial tcp: i/o timeout", CodeNetworkTimeout},
		{"unauthorized: invalid API key provided", CodeAuthFailed},
		{"redis: connection pool exhausted", CodeStorageConnectionError},
		{"upload aborted by peer", CodeUploadFailed},
		{"connect: connection refused", CodeBackendUnavailable},
		{"analysis output invalid: missing verdict", CodeAnalysisFailed},
		{"completely novel failure", CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(errors.New(tt.msg)))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	err := errors.New("dial tcp: i/o timeout after upload")
	first := Classify(err)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Classify(err))
	}
}

type recordingSink struct {
	codes []string
}

func (s *recordingSink) RecordFault(_, _ string, code string, _ bool, _ string) {
	s.codes = append(s.codes, code)
}

func TestHandleAutoRetryUnderCap(t *testing.T) {
	h := NewHandler(nil, nil)

	d := h.Handle(&llm.APIError{StatusCode: 429}, RequestContext{RequestID: "req-1", Attempt: 0})

	assert.Equal(t, CodeRateLimited, d.Code)
	assert.True(t, d.ShouldRetry)
	assert.True(t, d.CanRetry)
	assert.Greater(t, d.Delay, time.Duration(0))
}

func TestHandleStopsAtRetryCap(t *testing.T) {
	h := NewHandler(nil, nil)
	entry := Lookup(CodeRateLimited)

	d := h.Handle(&llm.APIError{StatusCode: 429}, RequestContext{Attempt: entry.MaxRetries})

	assert.False(t, d.ShouldRetry)
	assert.False(t, d.CanRetry, "exhausted auto-retries mean resubmitting would fail too")
	assert.NotEmpty(t, d.UserMessage)
}

func TestHandleRetryableWithoutAutoRetryKeepsCanRetry(t *testing.T) {
	h := NewHandler(nil, nil)

	// Quota exhaustion is never auto-retried but clears on its own, so
	// the user may resubmit later.
	d := h.Handle(&llm.APIError{StatusCode: 429, Code: "quota_exceeded"}, RequestContext{Attempt: 0})

	assert.Equal(t, CodeQuotaExceeded, d.Code)
	assert.False(t, d.ShouldRetry)
	assert.True(t, d.CanRetry)
}

func TestHandleNonRetryableNeverRetries(t *testing.T) {
	h := NewHandler(nil, nil)

	d := h.Handle(imaging.ErrFileTooLarge, RequestContext{Attempt: 0})

	assert.Equal(t, CodeFileTooLarge, d.Code)
	assert.False(t, d.ShouldRetry)
	assert.False(t, d.CanRetry)
	assert.NotEmpty(t, d.Guidance)
}

func TestHandleBudgetDenialIsTerminal(t *testing.T) {
	h := NewHandler(nil, nil)

	d := h.Handle(cost.ErrBudgetExceeded, RequestContext{Attempt: 0})

	assert.Equal(t, CodeBudgetExceeded, d.Code)
	assert.False(t, d.ShouldRetry)
	assert.False(t, d.CanRetry)
}

func TestHandleReportsToSink(t *testing.T) {
	sink := &recordingSink{}
	h := NewHandler(sink, nil)

	h.Handle(errors.New("connection refused"), RequestContext{RequestID: "req-1", UserID: "user-1"})

	require.Len(t, sink.codes, 1)
	assert.Equal(t, string(CodeBackendUnavailable), sink.codes[0])
}

func TestBackoffGrowsAndStaysBounded(t *testing.T) {
	base := 2 * time.Second

	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < 50; i++ {
			d := Backoff(base, attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, MaxBackoff)
		}
	}

	// Expectation is non-decreasing: the jitter-free midpoint doubles
	// until the cap.
	assert.LessOrEqual(t, averageBackoff(base, 0), averageBackoff(base, 3)+time.Second)
}

func averageBackoff(base time.Duration, attempt int) time.Duration {
	var sum time.Duration
	const n = 200
	for i := 0; i < n; i++ {
		sum += Backoff(base, attempt)
	}
	return sum / n
}

func TestLookupUnknownCodeFallsBack(t *testing.T) {
	e := Lookup(Code("not_a_real_code"))
	assert.Equal(t, CodeUnknown, e.Code)
}
