// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

/*
Package orchestrator coordinates a chart analysis request end to end:
budget check, image pipeline, prompt construction, the circuit-broken
vision call, verdict parsing, cost recording, and monitoring.

Analyze is the single inbound operation. Failures at any step flow
through the fault classifier; auto-retryable failures rerun the whole
sequence from an iterative loop in Analyze itself, never by recursion,
so stack depth and cancellation stay predictable. Budget denials and
input validation failures are terminal and never reach the backend.

Run wires the components from environment configuration and serves the
HTTP surface.
*/
package orchestrator
