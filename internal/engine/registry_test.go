// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
)

func TestLookup(t *testing.T) {
	ctor, err := Lookup(model.EngineMemory)
	require.NoError(t, err)
	eng, err := ctor(ports.EngineOptions{Name: "default", Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.NotNil(t, eng)

	ctor, err = Lookup(model.EngineBridge)
	require.NoError(t, err)
	_, err = ctor(ports.EngineOptions{Name: "default", Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, model.ErrValidation, "bridge requires a url")

	_, err = Lookup(model.EngineID("VENOM"))
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
