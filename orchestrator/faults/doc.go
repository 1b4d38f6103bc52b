// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

/*
Package faults maps raw failures from any stage of an analysis request
to a closed error taxonomy and a retry policy.

Classification is an ordered, deterministic match: typed errors from
the breaker, cost, imaging, and llm packages are recognized first, then
message-substring signatures, then the unknown fallback. Each taxonomy
entry carries a fixed policy (retryable, auto-retry, base delay, max
retries, user guidance), so the same failure always produces the same
decision.

Retry execution lives with the caller: Handle only answers whether to
retry and how long to wait. Backoff grows exponentially with ±25%
jitter and is capped so synchronized retry storms cannot form.

The retry policy here is strictly separate from the circuit breaker's
admission policy: the breaker decides whether a call may go out at all,
this package decides what to do after one fails.
*/
package faults
