// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package monitor

import "time"

// Health labels, derived from the weighted score.
const (
	HealthExcellent = "excellent"
	HealthGood      = "good"
	HealthFair      = "fair"
	HealthPoor      = "poor"
	HealthCritical  = "critical"
)

// errorWindow is the lookback for the recent-error component of the
// health score and the error-spike alert.
const errorWindow = 5 * time.Minute

// Report is the JSON snapshot served by the metrics endpoint.
type Report struct {
	UptimeSeconds  float64          `json:"uptime_seconds"`
	TotalRequests  int64            `json:"total_requests"`
	SuccessCount   int64            `json:"success_count"`
	FailureCount   int64            `json:"failure_count"`
	RejectedCount  int64            `json:"rejected_count"`
	RetriedCount   int64            `json:"retried_count"`
	AbandonedCount int64            `json:"abandoned_count"`
	SuccessRate    float64          `json:"success_rate"`
	ActiveRequests int              `json:"active_requests"`
	AvgLatencyMs   float64          `json:"avg_latency_ms"`
	LatencyBuckets map[string]int64 `json:"latency_buckets"`
	TotalTokens    int64            `json:"total_tokens"`
	TotalCostUSD   float64          `json:"total_cost_usd"`
	CircuitState   string           `json:"circuit_state"`
	HealthScore    int              `json:"health_score"`
	HealthLabel    string           `json:"health_label"`
	RecentErrors   []ErrorEvent     `json:"recent_errors"`
	Resources      ResourceSample   `json:"resources"`
	Alerts         []string         `json:"alerts,omitempty"`
}

var bucketLabels = []string{"0-1s", "1-3s", "3-5s", "5-10s", "10s+"}

// GetReport builds a consistent snapshot of everything the monitor
// knows.
func (m *Monitor) GetReport() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	completed := m.successCount + m.failureCount
	successRate := 1.0
	if completed > 0 {
		successRate = float64(m.successCount) / float64(completed)
	}
	avgLatency := time.Duration(0)
	if completed > 0 {
		avgLatency = m.totalLatency / time.Duration(completed)
	}

	recentErrCount := m.recentErrorCountLocked(time.Now().Add(-errorWindow))
	score := healthScore(successRate, avgLatency, len(m.active), recentErrCount, completed)

	buckets := make(map[string]int64, len(bucketLabels))
	for i, label := range bucketLabels {
		buckets[label] = m.latencyBuckets[i]
	}

	errs := make([]ErrorEvent, len(m.recentErrors))
	copy(errs, m.recentErrors)

	report := Report{
		UptimeSeconds:  time.Since(m.startTime).Seconds(),
		TotalRequests:  m.totalRequests,
		SuccessCount:   m.successCount,
		FailureCount:   m.failureCount,
		RejectedCount:  m.rejectedCount,
		RetriedCount:   m.retriedCount,
		AbandonedCount: m.abandonedCount,
		SuccessRate:    successRate,
		ActiveRequests: len(m.active),
		AvgLatencyMs:   float64(avgLatency.Milliseconds()),
		LatencyBuckets: buckets,
		TotalTokens:    m.totalTokens,
		TotalCostUSD:   m.totalCost,
		CircuitState:   m.circuitState,
		HealthScore:    score,
		HealthLabel:    healthLabel(score),
		RecentErrors:   errs,
		Resources:      m.lastSample,
	}
	report.Alerts = m.alertsLocked(successRate, avgLatency, recentErrCount, completed)
	return report
}

// recentErrorCountLocked counts errors newer than cutoff. Caller holds
// m.mu.
func (m *Monitor) recentErrorCountLocked(cutoff time.Time) int {
	n := 0
	for _, e := range m.recentErrors {
		if e.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}

// healthScore weights success rate (40), latency (25), active load
// (15), and recent errors (20) into a 0-100 score.
func healthScore(successRate float64, avgLatency time.Duration, active, recentErrors int, completed int64) int {
	// A fresh process with no traffic is healthy.
	if completed == 0 && active == 0 && recentErrors == 0 {
		return 100
	}

	score := successRate * 40

	// Full latency credit under 2s, none above 10s.
	latencySecs := avgLatency.Seconds()
	switch {
	case latencySecs <= 2:
		score += 25
	case latencySecs >= 10:
		// no credit
	default:
		score += 25 * (10 - latencySecs) / 8
	}

	// Full load credit under 10 active requests, none above 100.
	switch {
	case active <= 10:
		score += 15
	case active >= 100:
		// no credit
	default:
		score += 15 * float64(100-active) / 90
	}

	// Full error credit at zero recent errors, none at ten or more.
	switch {
	case recentErrors == 0:
		score += 20
	case recentErrors >= 10:
		// no credit
	default:
		score += 20 * float64(10-recentErrors) / 10
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score)
}

func healthLabel(score int) string {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 75:
		return HealthGood
	case score >= 60:
		return HealthFair
	case score >= 40:
		return HealthPoor
	default:
		return HealthCritical
	}
}

// alertsLocked derives alert strings from the current snapshot. Caller
// holds m.mu.
func (m *Monitor) alertsLocked(successRate float64, avgLatency time.Duration, recentErrors int, completed int64) []string {
	var alerts []string
	if completed >= 10 && successRate < 0.90 {
		alerts = append(alerts, "success rate below 90%")
	}
	if avgLatency > 10*time.Second {
		alerts = append(alerts, "average latency above 10s")
	}
	if m.circuitState == "open" {
		alerts = append(alerts, "circuit breaker open")
	}
	if recentErrors >= 5 {
		alerts = append(alerts, "error spike in the last 5 minutes")
	}
	return alerts
}
