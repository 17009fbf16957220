// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_WaitJoinsAll(t *testing.T) {
	var g Group
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, g.Go(func() {
			time.Sleep(5 * time.Millisecond)
			n.Add(1)
		}))
	}
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(10), n.Load())
}

func TestGroup_CloseRejectsNewWork(t *testing.T) {
	var g Group
	require.NoError(t, g.CloseAndWait(context.Background()))
	assert.False(t, g.Go(func() {}))
}

func TestGroup_WaitTimesOut(t *testing.T) {
	var g Group
	release := make(chan struct{})
	g.Go(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := g.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, g.Wait(context.Background()))
}

func TestGroup_WaitConcurrentWithGo(t *testing.T) {
	var g Group
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Go(func() {})
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, g.Wait(ctx))
		}()
	}
	wg.Wait()
	require.NoError(t, g.Wait(ctx))
}

func TestGroup_WaitOnIdleGroupReturnsImmediately(t *testing.T) {
	var g Group
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, g.Wait(ctx))

	require.True(t, g.Go(func() {}))
	require.NoError(t, g.Wait(context.Background()))
	require.NoError(t, g.Wait(ctx))
}
