// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package tasks tracks fire-and-forget goroutines so shutdown can join them
// with a bound.
package tasks

import (
	"context"
	"fmt"
	"sync"
)

// Group tracks background goroutines and provides a bounded join on shutdown.
// The zero value is ready to use.
type Group struct {
	mu      sync.Mutex
	closing bool
	active  int
	// idle is closed when active drops back to zero.
	idle chan struct{}
}

// Go runs fn in a new goroutine unless the group is closing. It reports
// whether fn was scheduled.
func (g *Group) Go(fn func()) bool {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		return false
	}
	if g.active == 0 {
		g.idle = make(chan struct{})
	}
	g.active++
	g.mu.Unlock()

	go func() {
		defer g.done()
		fn()
	}()

	return true
}

func (g *Group) done() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active--
	if g.active == 0 {
		close(g.idle)
		g.idle = nil
	}
}

// Wait blocks until the group has no running goroutines or ctx is done.
// The group keeps accepting work.
func (g *Group) Wait(ctx context.Context) error {
	g.mu.Lock()
	idle := g.idle
	g.mu.Unlock()
	if idle == nil {
		return nil
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task drain timeout: %w", ctx.Err())
	}
}

// CloseAndWait rejects new work and waits like Wait.
func (g *Group) CloseAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()
	return g.Wait(ctx)
}
