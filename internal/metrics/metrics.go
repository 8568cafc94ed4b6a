// Package metrics exposes the scanner's Prometheus collectors.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairfinder_scans_total",
			Help: "Completed scans by outcome",
		},
		[]string{"outcome"},
	)

	ScanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pairfinder_scan_duration_seconds",
		Help:    "Wall time of a full scan",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})

	SymbolTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairfinder_symbol_tasks_total",
			Help: "Per-symbol scan tasks by terminal state",
		},
		[]string{"state"},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pairfinder_fetch_duration_seconds",
			Help:    "Candle fetch latency by source",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	FetchRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairfinder_fetch_retries_total",
			Help: "Requests retried after rate limiting",
		},
		[]string{"source"},
	)

	ActiveSignals = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairfinder_active_signals",
		Help: "Symbols accepted by the latest completed scan",
	})

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairfinder_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	regOnce sync.Once
)

// Register adds every collector to the default registry. Safe to call repeatedly.
func Register() {
	regOnce.Do(func() {
		prometheus.MustRegister(ScansTotal, ScanDuration, SymbolTasks, FetchDuration, FetchRetries, ActiveSignals, HTTPRequests)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// Task states.
const (
	StateAccepted = "accepted"
	StateRejected = "rejected"
	StateFailed   = "failed"
)

// ObserveTask counts one finished symbol task.
func ObserveTask(state string) {
	SymbolTasks.WithLabelValues(state).Inc()
}

// ObserveFetch records the latency of one candle request.
func ObserveFetch(source string, started time.Time) {
	FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// ObserveScan records a finished scan.
func ObserveScan(outcome string, started time.Time, accepted int) {
	ScansTotal.WithLabelValues(outcome).Inc()
	ScanDuration.Observe(time.Since(started).Seconds())
	if outcome == "ok" {
		ActiveSignals.Set(float64(accepted))
	}
}
