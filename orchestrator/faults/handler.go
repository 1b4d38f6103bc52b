// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package faults

import (
	"math/rand"
	"time"

	"chartsight/core/shared/logger"
)

// MaxBackoff caps retry delays so concurrent failing requests cannot
// synchronize into retry storms.
const MaxBackoff = 30 * time.Second

// Sink receives every classified failure for observability. The
// monitoring package implements it; a nil sink disables reporting.
type Sink interface {
	RecordFault(requestID, userID string, code string, retryable bool, message string)
}

// RequestContext carries the per-request state Handle needs to decide
// on a retry.
type RequestContext struct {
	RequestID string
	UserID    string

	// Attempt is how many retries have already happened (0 on the
	// first failure).
	Attempt int
}

// Decision is the handler's answer for one failure.
type Decision struct {
	Code        Code          `json:"code"`
	ShouldRetry bool          `json:"should_retry"`
	Delay       time.Duration `json:"delay"`
	UserMessage string        `json:"user_message"`
	Guidance    string        `json:"guidance,omitempty"`

	// CanRetry tells the end user whether resubmitting the same
	// request could ever succeed, independent of auto-retry.
	CanRetry bool `json:"can_retry"`
}

// Handler classifies failures and applies the per-code retry policy.
type Handler struct {
	sink Sink
	log  *logger.Logger
}

// NewHandler creates a fault handler. sink may be nil.
func NewHandler(sink Sink, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.New("faults")
	}
	return &Handler{sink: sink, log: log}
}

// Handle classifies err and returns the retry decision for the given
// attempt. It never sleeps; the caller owns the retry loop and the
// wait.
func (h *Handler) Handle(err error, reqCtx RequestContext) Decision {
	code := Classify(err)
	entry := Lookup(code)

	decision := Decision{
		Code:        code,
		UserMessage: entry.Message,
		Guidance:    entry.Guidance,
		CanRetry:    entry.Retryable,
	}
	if entry.AutoRetry && reqCtx.Attempt < entry.MaxRetries {
		decision.ShouldRetry = true
		decision.Delay = Backoff(entry.BaseDelay, reqCtx.Attempt)
	} else if entry.AutoRetry {
		// Retry allowance exhausted: resubmitting the same request
		// would fail the same way.
		decision.CanRetry = false
	}

	h.log.Warn(reqCtx.UserID, reqCtx.RequestID, "request failure classified", map[string]interface{}{
		"code":         string(code),
		"attempt":      reqCtx.Attempt,
		"should_retry": decision.ShouldRetry,
		"delay_ms":     decision.Delay.Milliseconds(),
		"error":        err.Error(),
	})

	if h.sink != nil {
		h.sink.RecordFault(reqCtx.RequestID, reqCtx.UserID, string(code), entry.Retryable, err.Error())
	}
	return decision
}

// Backoff computes the delay before retry number attempt (0-based):
// base * 2^attempt with ±25% jitter, capped at MaxBackoff.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= MaxBackoff {
			delay = MaxBackoff
			break
		}
	}

	// Jitter in [-25%, +25%].
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	delay += jitter

	if delay > MaxBackoff {
		delay = MaxBackoff
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
