package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransfersInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bank_transfers_initiated_total",
		Help: "Transfers debited and recorded as PENDING, labeled by method",
	}, []string{"method"})

	TransfersResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bank_transfers_resolved_total",
		Help: "Admin resolutions applied, labeled by action and resulting status",
	}, []string{"action", "status"})

	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bank_transfer_resolution_duration_seconds",
		Help:    "Latency of admin resolution operations",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bank_notification_failures_total",
		Help: "Notification deliveries that failed and were dropped",
	})
)
