package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEvents counts every verified gateway delivery by route and
	// outcome (processed, duplicate, ignored, rejected, failed).
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Verified payment gateway events by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	// ReconciliationFailures counts the cases where money moved at the
	// gateway but the internal ledger write failed. These are the alertable
	// faults an operator must reconcile by hand.
	ReconciliationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconciliation_failures_total",
			Help: "Ledger writes that failed after a successful gateway charge",
		},
		[]string{"kind"},
	)
)
