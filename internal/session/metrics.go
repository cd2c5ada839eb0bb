package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for searchesTotal.
const (
	outcomeFound     = "found"
	outcomeNotFound  = "not_found"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
)

var (
	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockmatch_searches_total",
			Help: "Total number of search rounds by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	searchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockmatch_search_duration_seconds",
			Help:    "Search round duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	searchesLongRunning = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockmatch_search_long_running_total",
			Help: "Number of search rounds that crossed the long-running threshold",
		},
	)

	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockmatch_sessions_active",
			Help: "Number of open search sessions",
		},
	)
)
