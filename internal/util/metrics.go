package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_total",
		Help: "Total number of applied status transitions",
	}, []string{"kind", "action"})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_rejected_total",
		Help: "Total number of rejected transition requests",
	}, []string{"kind", "reason"})

	IdempotentNoopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_idempotent_noops_total",
		Help: "Total number of transition retries answered with the prior success",
	}, []string{"kind", "action"})

	ConflictAbortsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_conflict_aborts_total",
		Help: "Total number of transitions aborted on concurrent modification",
	}, []string{"kind"})

	CompensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_compensations_total",
		Help: "Total number of transitions committed with a failed side effect",
	}, []string{"kind", "side_effect"})

	ManualReviewFlaggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_manual_review_flagged_total",
		Help: "Total number of entities flagged for manual operator review",
	})

	PaymentCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_calls_total",
		Help: "Total number of payment gateway calls",
	}, []string{"operation", "outcome"})

	PaymentCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_call_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	OperatorAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_alerts_total",
		Help: "Total number of operator alerts fired",
	})

	OperatorAlertsSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "operator_alerts_suppressed_total",
		Help: "Total number of duplicate operator alerts suppressed",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
