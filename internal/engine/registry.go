// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine maps engine identifiers to their constructors.
package engine

import (
	"fmt"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
	"github.com/ManuGH/chatgate/internal/engine/bridge"
	"github.com/ManuGH/chatgate/internal/engine/memory"
)

// Supported lists every engine Lookup accepts.
var Supported = []model.EngineID{model.EngineMemory, model.EngineBridge}

// Lookup returns the constructor for id. Unknown ids wrap ErrNotFound.
func Lookup(id model.EngineID) (ports.EngineConstructor, error) {
	switch id {
	case model.EngineMemory:
		return func(opts ports.EngineOptions) (ports.Engine, error) { return memory.New(opts), nil }, nil
	case model.EngineBridge:
		return func(opts ports.EngineOptions) (ports.Engine, error) { return bridge.New(opts) }, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine '%s'", model.ErrNotFound, id)
	}
}
