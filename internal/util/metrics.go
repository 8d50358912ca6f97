package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InterventionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interventions_created_total",
		Help: "Total number of interventions scheduled",
	})

	InterventionStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervention_status_changes_total",
		Help: "Total number of intervention status transitions",
	}, []string{"status"})

	PartsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parts_added_total",
		Help: "Total number of spare parts added to interventions",
	})

	PartsRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parts_removed_total",
		Help: "Total number of spare parts removed from interventions",
	})

	StockDeductionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_deductions_failed_total",
		Help: "Total number of failed remote stock deductions",
	}, []string{"reason"})

	StockDeductLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_deduct_latency_seconds",
		Help:    "Latency of remote stock deduction calls",
		Buckets: prometheus.DefBuckets,
	})

	CompensationIntentsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "compensation_intents_pending",
		Help: "Number of unresolved compensation intents",
	})

	CompensationRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compensation_retries_total",
		Help: "Total number of compensation retry attempts",
	})

	CompensationResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compensation_resolved_total",
		Help: "Total number of compensation intents resolved",
	})

	CompensationAbandonedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compensation_abandoned_total",
		Help: "Total number of compensation intents abandoned after max attempts",
	})

	InvoicesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_generated_total",
		Help: "Total number of invoices generated",
	}, []string{"origin"})

	NotificationsEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_enqueued_total",
		Help: "Total number of notification commands enqueued",
	})

	EmailsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emails_sent_total",
		Help: "Total number of emails sent",
	})

	EmailsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "emails_failed_total",
		Help: "Total number of email sends that failed",
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
