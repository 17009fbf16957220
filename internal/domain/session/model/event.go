// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "time"

// Event names emitted by sessions.
const (
	EventMessage        = "message"
	EventMessageAny     = "message.any"
	EventMessageAck     = "message.ack"
	EventMessageRevoked = "message.revoked"
	EventStateChange    = "state.change"
	EventSessionStatus  = "session.status"
	EventGroupJoin      = "group.join"
	EventGroupLeave     = "group.leave"
	EventPresenceUpdate = "presence.update"
	EventPollVote       = "poll.vote"

	// EventAll subscribes a webhook to every event.
	EventAll = "*"
)

// KnownEvents lists every event a session may emit.
var KnownEvents = []string{
	EventMessage,
	EventMessageAny,
	EventMessageAck,
	EventMessageRevoked,
	EventStateChange,
	EventSessionStatus,
	EventGroupJoin,
	EventGroupLeave,
	EventPresenceUpdate,
	EventPollVote,
}

// IsMessageEvent reports whether payloads of this event carry a *Message.
func IsMessageEvent(event string) bool {
	switch event {
	case EventMessage, EventMessageAny:
		return true
	}
	return false
}

// Event is the webhook envelope. It is built once per emitted event and not
// modified afterwards.
type Event struct {
	Event     string `json:"event"`
	Session   string `json:"session"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent stamps an event with the current time in unix milliseconds.
func NewEvent(event, session string, payload any) Event {
	return Event{
		Event:     event,
		Session:   session,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// StatusPayload is the payload of session.status events.
type StatusPayload struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}
