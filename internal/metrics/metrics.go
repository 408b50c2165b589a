// Package metrics defines the Prometheus instruments exported by budgetwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed tracks processed event records by type and outcome
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetwatch_events_processed_total",
			Help: "Total number of event records processed",
		},
		[]string{"event_type", "outcome"},
	)

	// RetryAttempts tracks retry attempts by dependency
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetwatch_retry_attempts_total",
			Help: "Total number of retry attempts",
		},
		[]string{"dependency"},
	)

	// BreakerState tracks circuit breaker state per dependency (0=closed, 1=half_open, 2=open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "budgetwatch_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half_open, 2=open)",
		},
		[]string{"dependency"},
	)

	// ThresholdEvents tracks emitted threshold events by type
	ThresholdEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetwatch_threshold_events_total",
			Help: "Total number of budget threshold events emitted",
		},
		[]string{"threshold_type"},
	)

	// NotificationsSent tracks delivered notifications by channel and status
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetwatch_notifications_sent_total",
			Help: "Total number of notifications dispatched",
		},
		[]string{"channel", "status"},
	)

	// DeadLetters tracks records routed to the dead-letter sink
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetwatch_dead_letters_total",
			Help: "Total number of records sent to the dead-letter sink",
		},
		[]string{"event_type", "error_kind"},
	)

	// BatchDuration tracks batch processing latency
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "budgetwatch_batch_duration_seconds",
			Help:    "Batch processing latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SpendRecomputations tracks full category spend rescans
	SpendRecomputations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budgetwatch_spend_recomputations_total",
			Help: "Total number of full category spend rescans",
		},
	)
)
