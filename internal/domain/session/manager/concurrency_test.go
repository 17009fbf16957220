// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

func (m *Manager) lockEntries() int {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	return len(m.locks)
}

func TestManager_ConcurrentStartSameName(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	const callers = 32
	var ok, conflict atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.m.Start(ctx, "default", nil)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, model.ErrConflict):
				conflict.Add(1)
			default:
				t.Errorf("unexpected start error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(callers-1), conflict.Load())

	infos, err := h.m.ListSessions(ctx, false)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestManager_StartStopInterleaving(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		var startErr, stopErr error
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, startErr = h.m.Start(ctx, "default", nil)
		}()
		go func() {
			defer wg.Done()
			stopErr = h.m.Stop(ctx, "default", false)
		}()
		wg.Wait()

		require.NoError(t, startErr, "round %d", round)
		_, live := h.m.lookupLive("default")
		if stopErr != nil {
			// Stop ran first and found nothing to stop.
			require.ErrorIs(t, stopErr, model.ErrNotFound, "round %d", round)
			require.True(t, live, "round %d", round)
			require.NoError(t, h.m.Stop(ctx, "default", false))
		} else {
			require.False(t, live, "round %d", round)
		}
	}
	assert.Zero(t, h.m.lockEntries())
}

func TestManager_UnrelatedNamesDoNotBlock(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	unlock := h.m.lock("alpha")

	otherDone := make(chan error, 1)
	go func() {
		_, err := h.m.Start(ctx, "beta", nil)
		otherDone <- err
	}()
	select {
	case err := <-otherDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		unlock()
		t.Fatal("start of beta blocked on alpha's lock")
	}

	sameDone := make(chan error, 1)
	go func() {
		_, err := h.m.Start(ctx, "alpha", nil)
		sameDone <- err
	}()
	select {
	case <-sameDone:
		t.Fatal("start of alpha did not wait for the held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case err := <-sameDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("start of alpha never resumed")
	}
}

func TestManager_NameLocksReleased(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("s%d", i)
		_, err := h.m.Start(ctx, name, nil)
		require.NoError(t, err)
		require.NoError(t, h.m.Logout(ctx, name))
	}
	require.ErrorIs(t, h.m.Stop(ctx, "missing", false), model.ErrNotFound)

	assert.Zero(t, h.m.lockEntries())
}
