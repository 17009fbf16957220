// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "errors"

// Error taxonomy shared by the manager, sessions and the API layer.
var (
	// ErrConflict: the operation clashes with current state (e.g. session already live).
	ErrConflict = errors.New("conflict")
	// ErrNotFound: unknown session name or engine identifier.
	ErrNotFound = errors.New("not found")
	// ErrValidation: malformed request, rejected before any engine call.
	ErrValidation = errors.New("validation failed")
	// ErrNotImplemented: the engine does not support the operation.
	ErrNotImplemented = errors.New("not implemented by engine")
)
