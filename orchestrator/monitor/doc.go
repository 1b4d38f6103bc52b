// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

/*
Package monitor tracks the lifecycle of every analysis request and
aggregates them into counters, latency histograms, a weighted health
score, and Prometheus metrics.

A request is traced from TrackRequestStart to TrackRequestEnd; active
traces live in a map and move to a bounded completed ring on
completion. Counters cover totals, successes, failures, admission
rejections, and accumulated retries; they grow until Reset is called.
A background sweeper evicts traces abandoned for more than five minutes
and counts them as failures, so crashed handlers cannot inflate the
active count forever. A resource sampler records memory and goroutine
stats on a fixed interval.

The package implements the fault sink consumed by the classifier, which
keeps the dependency arrow pointing from faults to monitoring and not
the other way.
*/
package monitor
