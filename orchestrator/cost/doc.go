// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

/*
Package cost provides the pricing tables, the pure cost calculator, and
the per-user daily budget ledger for vision inference calls.

The calculator maps (model, token counts, speed mode, subscription tier)
to a full CostBreakdown. It is a pure function over the published rate
and multiplier tables; unknown models fall back to the wildcard default
rate rather than erroring.

The ledger is consulted before every external call (CheckPermission) and
charged after a successful call from the token usage the backend
actually returned (RecordUsage). Spend is keyed by (user, UTC day) in a
pluggable Store: the in-process memory store is the default, the Redis
store shares budget state across horizontally-scaled instances. An
optional Repository appends every usage record for offline accounting.
*/
package cost
