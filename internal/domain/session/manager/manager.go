// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager owns the registry of live sessions: it starts, stops and
// restores them and persists their configuration.
package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
	"github.com/ManuGH/chatgate/internal/domain/session/store"
	"github.com/ManuGH/chatgate/internal/engine"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/media"
	"github.com/ManuGH/chatgate/internal/metrics"
	"github.com/ManuGH/chatgate/internal/platform/tasks"
	"github.com/ManuGH/chatgate/internal/webhook"
)

const meTimeout = 5 * time.Second

// Deps are the collaborators shared by every session.
type Deps struct {
	Store   store.ConfigStore
	Storage media.Storage

	// HTTPClient is used for webhook deliveries and engine file downloads.
	HTTPClient *http.Client

	// Lookup resolves engine ids; nil means engine.Lookup.
	Lookup func(model.EngineID) (ports.EngineConstructor, error)

	Logger zerolog.Logger
}

// Manager is the single owner of live sessions. Start/stop for one name are
// serialized; different names proceed concurrently.
type Manager struct {
	store   store.ConfigStore
	storage media.Storage
	client  *http.Client
	lookup  func(model.EngineID) (ports.EngineConstructor, error)
	logger  zerolog.Logger

	settings atomic.Pointer[Settings]

	mu   sync.RWMutex
	live map[string]*Session

	locksMu sync.Mutex
	locks   map[string]*nameLock

	deliveries tasks.Group
}

func New(settings Settings, deps Deps) *Manager {
	if deps.Lookup == nil {
		deps.Lookup = engine.Lookup
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}
	m := &Manager{
		store:   deps.Store,
		storage: deps.Storage,
		client:  deps.HTTPClient,
		lookup:  deps.Lookup,
		logger:  deps.Logger,
		live:    make(map[string]*Session),
		locks:   make(map[string]*nameLock),
	}
	m.settings.Store(&settings)
	return m
}

// Settings returns the current settings snapshot.
func (m *Manager) Settings() Settings { return *m.settings.Load() }

// ApplySettings swaps the settings used for future starts. The engine is
// fixed for the process lifetime because the store is namespaced by it.
func (m *Manager) ApplySettings(next Settings) {
	cur := m.settings.Load()
	if next.Engine != cur.Engine {
		m.logger.Warn().
			Str("current", string(cur.Engine)).
			Str("requested", string(next.Engine)).
			Msg("engine change requires a restart, keeping current engine")
		next.Engine = cur.Engine
	}
	m.settings.Store(&next)
	m.logger.Info().Msg("session settings reloaded")
}

// nameLock serializes lifecycle calls for one session name. refs counts
// holders and waiters; the entry is dropped when it reaches zero.
type nameLock struct {
	mu   sync.Mutex
	refs int
}

func (m *Manager) lock(name string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[name]
	if !ok {
		l = &nameLock{}
		m.locks[name] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, name)
		}
		m.locksMu.Unlock()
	}
}

func (m *Manager) lookupLive(name string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.live[name]
	return s, ok
}

func (m *Manager) register(s *Session) int {
	m.mu.Lock()
	m.live[s.name] = s
	n := len(m.live)
	m.mu.Unlock()
	metrics.SetSessionsLive(n)
	return n
}

func (m *Manager) unregister(name string) {
	m.mu.Lock()
	delete(m.live, name)
	n := len(m.live)
	m.mu.Unlock()
	metrics.SetSessionsLive(n)
}

func (m *Manager) liveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

func notFound(name string) error {
	return fmt.Errorf("%w: We didn't find a session with name '%s'. Please start it first by using POST /api/sessions/start request",
		model.ErrNotFound, name)
}

// Start creates, persists and connects a session. A connect failure is not
// an error for the caller: the session is returned with status FAILED.
func (m *Manager) Start(ctx context.Context, name string, cfg *model.SessionConfig) (*model.SessionInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: session name is required", model.ErrValidation)
	}
	unlock := m.lock(name)
	defer unlock()

	if _, ok := m.lookupLive(name); ok {
		metrics.IncSessionStart("conflict")
		return nil, fmt.Errorf("%w: session '%s' is already started", model.ErrConflict, name)
	}

	if cfg == nil {
		cfg = &model.SessionConfig{}
	} else {
		cfg = cfg.Clone()
	}
	if err := cfg.Validate(); err != nil {
		metrics.IncSessionStart("error")
		return nil, err
	}

	settings := m.settings.Load()
	ctor, err := m.lookup(settings.Engine)
	if err != nil {
		metrics.IncSessionStart("error")
		return nil, err
	}

	// Persist before connecting so a crash mid-connect still restores it.
	if err := m.store.Set(ctx, name, cfg); err != nil {
		metrics.IncSessionStart("error")
		return nil, fmt.Errorf("persist session '%s': %w", name, err)
	}

	logger := m.logger.With().
		Str(xglog.FieldSession, name).
		Str(xglog.FieldEngine, string(settings.Engine)).
		Logger()

	eng, err := ctor(ports.EngineOptions{
		Name:       name,
		Config:     cfg.Clone(),
		Proxy:      resolveProxy(cfg, settings, m.liveCount()),
		Logger:     logger,
		HTTPClient: m.client,
		BridgeURL:  settings.BridgeURL,
	})
	if err != nil {
		metrics.IncSessionStart("error")
		return nil, err
	}

	sess := newSession(name, eng, cfg, media.NewManager(m.storage, settings.MediaMimetypes, logger), logger)
	conductor := webhook.NewConductor(m.client, &m.deliveries, logger)
	conductor.Configure(sess, mergeWebhooks(cfg.Webhooks, settings.GlobalWebhook))
	m.register(sess)

	if err := sess.start(); err != nil {
		metrics.IncSessionStart("failed")
		logger.Error().Err(err).Str(xglog.FieldEvent, "session.failed").Msg("engine connect failed")
	} else {
		metrics.IncSessionStart("started")
		logger.Info().Str(xglog.FieldEvent, "session.started").Msg("session started")
	}
	return sess.Info(), nil
}

// Stop disconnects a live session and removes it from the registry. With
// logout the persisted config is deleted too, so it is not restored.
func (m *Manager) Stop(ctx context.Context, name string, logout bool) error {
	unlock := m.lock(name)
	defer unlock()

	if _, ok := m.lookupLive(name); !ok {
		return notFound(name)
	}
	return m.stopLocked(ctx, name, logout)
}

func (m *Manager) stopLocked(ctx context.Context, name string, logout bool) error {
	sess, _ := m.lookupLive(name)
	if err := sess.stop(ctx, logout); err != nil {
		sess.logger.Warn().Err(err).Msg("session did not stop cleanly")
	}
	m.unregister(name)

	if logout {
		if err := m.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete session '%s' config: %w", name, err)
		}
	}
	sess.logger.Info().Str(xglog.FieldEvent, "session.stopped").Bool("logout", logout).Msg("session stopped")
	return nil
}

// Logout stops a live session with logout, or only forgets the stored
// config of a session that is not running.
func (m *Manager) Logout(ctx context.Context, name string) error {
	unlock := m.lock(name)
	defer unlock()

	if _, ok := m.lookupLive(name); ok {
		return m.stopLocked(ctx, name, true)
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete session '%s' config: %w", name, err)
	}
	m.logger.Info().Str(xglog.FieldSession, name).Str(xglog.FieldEvent, "session.logout").Msg("stored session removed")
	return nil
}

// Session returns the live handle for messaging operations.
func (m *Manager) Session(name string) (*Session, error) {
	s, ok := m.lookupLive(name)
	if !ok {
		return nil, notFound(name)
	}
	return s, nil
}

// GetSession returns the runtime info of a live session.
func (m *Manager) GetSession(name string) (*model.SessionInfo, error) {
	s, err := m.Session(name)
	if err != nil {
		return nil, err
	}
	return s.Info(), nil
}

// Me returns the account of a live session.
func (m *Manager) Me(ctx context.Context, name string) (*model.MeInfo, error) {
	s, err := m.Session(name)
	if err != nil {
		return nil, err
	}
	return s.Me(ctx)
}

// ListSessions returns live sessions sorted by name. With all, stored
// sessions that are not live are added as STOPPED with their stored config.
func (m *Manager) ListSessions(ctx context.Context, all bool) ([]*model.SessionInfo, error) {
	m.mu.RLock()
	live := make([]*Session, 0, len(m.live))
	for _, s := range m.live {
		live = append(live, s)
	}
	m.mu.RUnlock()

	infos := make([]*model.SessionInfo, 0, len(live))
	seen := make(map[string]bool, len(live))
	for _, s := range live {
		info := s.Info()
		if info.Status != model.StatusStopped {
			meCtx, cancel := context.WithTimeout(ctx, meTimeout)
			if me, err := s.Me(meCtx); err == nil {
				info.Me = me
			}
			cancel()
		}
		infos = append(infos, info)
		seen[s.name] = true
	}

	if all {
		names, err := m.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stored sessions: %w", err)
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			cfg, err := m.store.Get(ctx, name)
			if err != nil {
				m.logger.Warn().Err(err).Str(xglog.FieldSession, name).Msg("failed to read stored session config")
			}
			infos = append(infos, &model.SessionInfo{Name: name, Status: model.StatusStopped, Config: cfg})
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Shutdown stops every live session without logout so they are restored on
// the next boot, then waits for in-flight webhook deliveries until ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, 0, len(m.live))
	for name := range m.live {
		names = append(names, name)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := m.Stop(ctx, name, false); err != nil && !errors.Is(err, model.ErrNotFound) {
				m.logger.Error().Err(err).Str(xglog.FieldSession, name).Msg("failed to stop session on shutdown")
			}
		}(name)
	}
	wg.Wait()
	m.logger.Info().Int("sessions", len(names)).Msg("all sessions stopped")

	if err := m.deliveries.CloseAndWait(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("webhook deliveries still in flight at shutdown")
		return err
	}
	return nil
}
