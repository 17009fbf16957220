// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatgate_webhook_attempts_total",
		Help: "Total number of webhook HTTP attempts, including retries",
	})

	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatgate_webhook_deliveries_total",
		Help: "Webhook deliveries by final outcome",
	}, []string{"outcome"}) // outcome=delivered|rejected|failed

	WebhookDeliveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatgate_webhook_delivery_duration_seconds",
		Help:    "Time from first attempt to final outcome of a webhook delivery",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	WebhookEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatgate_webhook_events_unsubscribed_total",
		Help: "Events that matched no webhook subscription",
	})
)

// IncWebhookAttempt counts one HTTP attempt.
func IncWebhookAttempt() { WebhookAttemptsTotal.Inc() }

// ObserveWebhookDelivery records the final outcome of one delivery.
func ObserveWebhookDelivery(outcome string, d time.Duration) {
	WebhookDeliveriesTotal.WithLabelValues(outcome).Inc()
	WebhookDeliveryDuration.Observe(d.Seconds())
}

// IncWebhookUnsubscribed counts an event nobody subscribed to.
func IncWebhookUnsubscribed() { WebhookEventsDropped.Inc() }
