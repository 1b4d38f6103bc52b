// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"runtime"
	"sync"
	"time"

	"chartsight/core/shared/logger"
)

const (
	maxCompletedTraces = 100
	maxRecentErrors    = 50

	// abandonTimeout is how long an active trace may sit before the
	// sweeper evicts it as a failure.
	abandonTimeout = 5 * time.Minute

	samplerInterval = 30 * time.Second
	sweeperInterval = 60 * time.Second
)

// histogram bucket upper bounds in seconds; the last bucket is
// unbounded.
var latencyBucketBounds = []float64{1, 3, 5, 10}

// ResourceSample is one point-in-time reading of process resources.
type ResourceSample struct {
	Timestamp      time.Time `json:"timestamp"`
	Goroutines     int       `json:"goroutines"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64    `json:"heap_sys_bytes"`
	NumGC          uint32    `json:"num_gc"`
}

// Monitor aggregates request traces, counters, and resource samples.
// All methods are safe for concurrent use.
type Monitor struct {
	mu sync.RWMutex

	active       map[string]*RequestTrace
	completed    []*RequestTrace
	recentErrors []ErrorEvent

	totalRequests  int64
	successCount   int64
	failureCount   int64
	rejectedCount  int64
	retriedCount   int64
	abandonedCount int64
	totalTokens    int64
	totalCost      float64
	totalLatency   time.Duration
	latencyBuckets [5]int64
	lastSample     ResourceSample
	circuitState   string
	startTime      time.Time

	metrics *promMetrics
	log     *logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a monitor. Start must be called to run the background
// sampler and sweeper.
func New(log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.New("monitor")
	}
	return &Monitor{
		active:       make(map[string]*RequestTrace),
		completed:    make([]*RequestTrace, 0, maxCompletedTraces),
		recentErrors: make([]ErrorEvent, 0, maxRecentErrors),
		circuitState: "closed",
		startTime:    time.Now(),
		metrics:      newPromMetrics(),
		log:          log,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the resource sampler and the abandoned-trace sweeper.
func (m *Monitor) Start() {
	go m.run()
}

// Stop terminates the background goroutines. Safe to call more than
// once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) run() {
	sampler := time.NewTicker(samplerInterval)
	sweeper := time.NewTicker(sweeperInterval)
	defer sampler.Stop()
	defer sweeper.Stop()

	m.sampleResources()
	for {
		select {
		case <-m.stopCh:
			return
		case <-sampler.C:
			m.sampleResources()
		case <-sweeper.C:
			m.sweepAbandoned()
		}
	}
}

// TrackRequestStart opens a trace for a request.
func (m *Monitor) TrackRequestStart(requestID, userID, model string, hasImage bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.active[requestID] = &RequestTrace{
		RequestID: requestID,
		UserID:    userID,
		Model:     model,
		HasImage:  hasImage,
		StartTime: time.Now(),
	}
	m.totalRequests++
	m.metrics.activeRequests.Inc()
}

// TrackRequestEnd closes a trace and moves it to the completed ring.
// Unknown request IDs are ignored.
func (m *Monitor) TrackRequestEnd(requestID string, outcome Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trace, ok := m.active[requestID]
	if !ok {
		return
	}
	delete(m.active, requestID)

	trace.EndTime = time.Now()
	trace.ResponseTime = trace.EndTime.Sub(trace.StartTime)
	trace.Success = outcome.Success
	trace.ErrorCode = outcome.ErrorCode
	trace.TokensUsed = outcome.TokensUsed
	trace.Cost = outcome.Cost
	trace.RetryCount = outcome.RetryCount

	m.completeLocked(trace)
}

// rejectionCodes mark requests refused before or at admission (budget
// denial, open circuit) rather than failed in flight.
var rejectionCodes = map[string]bool{
	"budget_exceeded":     true,
	"backend_unavailable": true,
}

// completeLocked finalizes a trace. Caller holds m.mu.
func (m *Monitor) completeLocked(trace *RequestTrace) {
	if trace.Success {
		m.successCount++
	} else {
		m.failureCount++
		if rejectionCodes[trace.ErrorCode] {
			m.rejectedCount++
		}
	}
	m.retriedCount += int64(trace.RetryCount)
	m.totalTokens += int64(trace.TokensUsed)
	m.totalCost += trace.Cost
	m.totalLatency += trace.ResponseTime
	m.latencyBuckets[bucketFor(trace.ResponseTime)]++

	m.completed = append(m.completed, trace)
	if len(m.completed) > maxCompletedTraces {
		m.completed = m.completed[len(m.completed)-maxCompletedTraces:]
	}

	outcome := "success"
	if !trace.Success {
		outcome = "failure"
	}
	m.metrics.requestsTotal.WithLabelValues(outcome).Inc()
	m.metrics.requestDuration.Observe(trace.ResponseTime.Seconds())
	m.metrics.activeRequests.Dec()
	if trace.Cost > 0 {
		m.metrics.costTotal.Add(trace.Cost)
	}
}

func bucketFor(d time.Duration) int {
	secs := d.Seconds()
	for i, bound := range latencyBucketBounds {
		if secs < bound {
			return i
		}
	}
	return len(latencyBucketBounds)
}

// Reset zeroes the cumulative counters, the completed-trace ring, and
// the recent-error ring. Active traces, the circuit state, and the
// Prometheus series (cumulative by design) are untouched.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// In-flight requests stay counted so the totals still add up when
	// they complete.
	m.totalRequests = int64(len(m.active))
	m.successCount = 0
	m.failureCount = 0
	m.rejectedCount = 0
	m.retriedCount = 0
	m.abandonedCount = 0
	m.totalTokens = 0
	m.totalCost = 0
	m.totalLatency = 0
	m.latencyBuckets = [5]int64{}
	m.completed = m.completed[:0]
	m.recentErrors = m.recentErrors[:0]
}

// TrackError records a classified failure into the recent-errors ring.
func (m *Monitor) TrackError(requestID, userID, code, message string, retryable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recentErrors = append(m.recentErrors, ErrorEvent{
		RequestID: requestID,
		UserID:    userID,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now(),
	})
	if len(m.recentErrors) > maxRecentErrors {
		m.recentErrors = m.recentErrors[len(m.recentErrors)-maxRecentErrors:]
	}
	m.metrics.errorsTotal.WithLabelValues(code).Inc()
}

// RecordFault implements the fault sink consumed by the classifier.
func (m *Monitor) RecordFault(requestID, userID string, code string, retryable bool, message string) {
	m.TrackError(requestID, userID, code, message, retryable)
}

// SetCircuitState records the breaker state for health and metrics.
func (m *Monitor) SetCircuitState(state string) {
	m.mu.Lock()
	m.circuitState = state
	m.mu.Unlock()

	var v float64
	switch state {
	case "open":
		v = 1
	case "half-open":
		v = 0.5
	}
	m.metrics.circuitState.Set(v)
}

// Log writes a structured message through the monitor's logger.
func (m *Monitor) Log(level logger.LogLevel, userID, requestID, message string, fields map[string]interface{}) {
	m.log.Log(level, logger.CategoryGeneral, userID, requestID, message, fields)
}

// sampleResources takes one resource reading.
func (m *Monitor) sampleResources() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := ResourceSample{
		Timestamp:      time.Now(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: ms.HeapAlloc,
		HeapSysBytes:   ms.HeapSys,
		NumGC:          ms.NumGC,
	}

	m.mu.Lock()
	m.lastSample = sample
	m.mu.Unlock()

	m.metrics.goroutines.Set(float64(sample.Goroutines))
	m.metrics.heapAlloc.Set(float64(sample.HeapAllocBytes))
}

// sweepAbandoned evicts active traces older than the abandon timeout,
// counting each as a failure.
func (m *Monitor) sweepAbandoned() {
	cutoff := time.Now().Add(-abandonTimeout)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, trace := range m.active {
		if trace.StartTime.After(cutoff) {
			continue
		}
		delete(m.active, id)

		trace.EndTime = time.Now()
		trace.ResponseTime = trace.EndTime.Sub(trace.StartTime)
		trace.Success = false
		trace.ErrorCode = "abandoned"
		m.abandonedCount++
		m.completeLocked(trace)

		m.log.Warn(trace.UserID, id, "abandoned request evicted", map[string]interface{}{
			"age_seconds": trace.ResponseTime.Seconds(),
		})
	}
}
