// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/metrics"
)

const (
	sourcePersisted  = "persisted"
	sourcePredefined = "predefined"
)

// RecoveryOptions select what Restore starts.
type RecoveryOptions struct {
	RestartAll bool
	Predefined []string
}

// Restore runs the startup recovery protocol: every stored session (with
// RestartAll) and then every predefined name that is not live yet. Starts
// run in parallel and fail independently; the returned error only
// summarizes what failed.
func (m *Manager) Restore(ctx context.Context, opts RecoveryOptions) error {
	logger := m.logger.With().Str(xglog.FieldComponent, "sessions.recovery").Logger()
	start := time.Now()
	var errs []error

	if opts.RestartAll {
		names, err := m.store.List(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("list stored sessions: %w", err))
		} else {
			logger.Info().Int("count", len(names)).Msg("restarting stored sessions")
			errs = append(errs, m.startAll(ctx, sourcePersisted, names)...)
		}
	}

	var pending []string
	for _, name := range opts.Predefined {
		if _, live := m.lookupLive(name); !live {
			pending = append(pending, name)
		}
	}
	if len(pending) > 0 {
		logger.Info().Strs("sessions", pending).Msg("starting predefined sessions")
		errs = append(errs, m.startAll(ctx, sourcePredefined, pending)...)
	}

	logger.Info().Dur("duration", time.Since(start)).Int("failures", len(errs)).Msg("session recovery complete")
	return errors.Join(errs...)
}

// startAll starts names in parallel. Each goroutine reports its own failure
// and never cancels its siblings.
func (m *Manager) startAll(ctx context.Context, source string, names []string) []error {
	results := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = m.restoreOne(ctx, source, name)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (m *Manager) restoreOne(ctx context.Context, source, name string) error {
	logger := m.logger.With().Str(xglog.FieldSession, name).Str("source", source).Logger()

	cfg, err := m.store.Get(ctx, name)
	if err != nil {
		metrics.IncSessionRestore(source, "error")
		logger.Error().Err(err).Msg("failed to read stored session config")
		return fmt.Errorf("session '%s': %w", name, err)
	}

	info, err := m.Start(ctx, name, cfg)
	switch {
	case errors.Is(err, model.ErrConflict):
		metrics.IncSessionRestore(source, "already_live")
		return nil
	case err != nil:
		metrics.IncSessionRestore(source, "error")
		logger.Error().Err(err).Msg("failed to restore session")
		return fmt.Errorf("session '%s': %w", name, err)
	case info.Status == model.StatusFailed:
		metrics.IncSessionRestore(source, "failed")
		return fmt.Errorf("session '%s': engine connect failed", name)
	}
	metrics.IncSessionRestore(source, "started")
	return nil
}
