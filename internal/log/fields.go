// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSession   = "session"
	FieldRequestID = "request_id"
	FieldMessageID = "message_id"

	// Process fields
	FieldEvent     = "event"
	FieldEventType = "event_type"
	FieldComponent = "component"
	FieldEngine    = "engine"

	// State fields
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	// Delivery fields
	FieldWebhookURL = "webhook_url"
	FieldAttempt    = "attempt"
	FieldStatusCode = "status_code"

	// Media fields
	FieldMimetype = "mimetype"
	FieldPath     = "path"
	FieldURL      = "url"
)
