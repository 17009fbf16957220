// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

const (
	SessionNameKey = "chatgate.session"
	EventNameKey   = "chatgate.event"

	WebhookURLKey      = "webhook.url"
	WebhookAttemptsKey = "webhook.attempts"
	WebhookOutcomeKey  = "webhook.outcome"

	MediaMimetypeKey = "media.mimetype"
	MediaOutcomeKey  = "media.outcome"
)

// WebhookAttributes describes one delivery of one event to one endpoint.
func WebhookAttributes(session, event, url string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(WebhookURLKey, url)}
	if session != "" {
		attrs = append(attrs, attribute.String(SessionNameKey, session))
	}
	if event != "" {
		attrs = append(attrs, attribute.String(EventNameKey, event))
	}
	return attrs
}

// WebhookResultAttributes records how a delivery ended.
func WebhookResultAttributes(outcome string, attempts int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(WebhookOutcomeKey, outcome),
		attribute.Int(WebhookAttemptsKey, attempts),
	}
}

// MediaAttributes describes one media processing step.
func MediaAttributes(session, mimetype, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionNameKey, session),
		attribute.String(MediaMimetypeKey, mimetype),
		attribute.String(MediaOutcomeKey, outcome),
	}
}
