// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// promMetrics mirrors the monitor's aggregates into Prometheus. Each
// monitor owns its registry so tests can build monitors freely.
type promMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	requestDuration prometheus.Histogram
	activeRequests  prometheus.Gauge
	circuitState    prometheus.Gauge
	costTotal       prometheus.Counter
	goroutines      prometheus.Gauge
	heapAlloc       prometheus.Gauge
}

func newPromMetrics() *promMetrics {
	m := &promMetrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartsight_requests_total",
			Help: "Completed analysis requests by outcome.",
		}, []string{"outcome"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartsight_errors_total",
			Help: "Classified failures by taxonomy code.",
		}, []string{"code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartsight_request_duration_seconds",
			Help:    "End-to-end analysis latency.",
			Buckets: []float64{0.5, 1, 3, 5, 10, 30},
		}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartsight_active_requests",
			Help: "Requests currently in flight.",
		}),
		circuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartsight_circuit_state",
			Help: "Circuit breaker state (0 closed, 0.5 half-open, 1 open).",
		}),
		costTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartsight_cost_usd_total",
			Help: "Accumulated inference spend in USD.",
		}),
		goroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartsight_goroutines",
			Help: "Goroutine count at last sample.",
		}),
		heapAlloc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartsight_heap_alloc_bytes",
			Help: "Heap bytes allocated at last sample.",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.requestDuration,
		m.activeRequests,
		m.circuitState,
		m.costTotal,
		m.goroutines,
		m.heapAlloc,
	)
	return m
}

// PrometheusHandler exposes the monitor's registry in the native
// exposition format.
func (m *Monitor) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.metrics.registry, promhttp.HandlerOpts{})
}
