// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

/*
Package llm adapts chart-analysis requests to the vision inference
backend.

The backend exposes two request shapes. Newer model families use the
structured responses endpoint, where the reasoning effort derived from
the caller's speed mode is sent as a nested parameter. Older families
use the chat-style messages endpoint, where the image travels as a
data-URL content part. Client picks the shape from the model name and
makes at most one fallback attempt on an alternate model when the
primary call fails.

All providers speak a single canonical Request/Response pair, so the
orchestrator never sees shape differences.
*/
package llm
