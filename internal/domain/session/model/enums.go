// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "strings"

// Status is the client-visible lifecycle of a session.
type Status string

const (
	StatusStarting   Status = "STARTING"
	StatusScanQRCode Status = "SCAN_QR_CODE"
	StatusWorking    Status = "WORKING"
	StatusFailed     Status = "FAILED"
	StatusStopped    Status = "STOPPED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusStarting, StatusScanQRCode, StatusWorking, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// EngineID identifies a chat-engine backend.
type EngineID string

const (
	// EngineMemory is the in-process engine.
	EngineMemory EngineID = "MEMORY"
	// EngineBridge drives an external engine process over a WebSocket.
	EngineBridge EngineID = "BRIDGE"
)

// ParseEngineID normalises user input; it does not check that the engine exists.
func ParseEngineID(s string) EngineID {
	return EngineID(strings.ToUpper(strings.TrimSpace(s)))
}

// Namespace is the lower-case key used to partition persisted configs per engine.
func (e EngineID) Namespace() string {
	return strings.ToLower(string(e))
}

// MediaKind selects how a file is sent.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaFile  MediaKind = "file"
	MediaVoice MediaKind = "voice"
	MediaVideo MediaKind = "video"
)
