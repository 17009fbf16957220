// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/media"
	"github.com/ManuGH/chatgate/internal/metrics"
	"github.com/ManuGH/chatgate/internal/platform/tasks"
)

const (
	connectTimeout    = 30 * time.Second
	mediaDrainTimeout = 10 * time.Second
)

// Session is the handle to one engine connection. It owns its media manager
// and fans engine events out to its listeners (the webhook conductor).
type Session struct {
	name   string
	engine ports.Engine
	config *model.SessionConfig
	media  *media.Manager
	logger zerolog.Logger

	mu        sync.RWMutex
	status    model.Status
	listeners []func(model.Event)

	work   tasks.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(name string, eng ports.Engine, cfg *model.SessionConfig, mm *media.Manager, logger zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		name:   name,
		engine: eng,
		config: cfg,
		media:  mm,
		logger: logger,
		status: model.StatusStarting,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Session) Name() string { return s.name }

func (s *Session) Status() model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Info returns the runtime view; the config is a copy.
func (s *Session) Info() *model.SessionInfo {
	return &model.SessionInfo{Name: s.name, Status: s.Status(), Config: s.config.Clone()}
}

// Subscribe registers fn for every event the session emits.
func (s *Session) Subscribe(fn func(model.Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) emit(event string, payload any) {
	e := model.NewEvent(event, s.name, payload)
	s.mu.RLock()
	listeners := append([]func(model.Event){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(e)
	}
}

func (s *Session) setStatus(status model.Status) bool {
	s.mu.Lock()
	old := s.status
	s.status = status
	s.mu.Unlock()
	if old == status {
		return false
	}
	metrics.IncStatusTransition(string(status))
	s.logger.Info().
		Str(xglog.FieldOldStatus, string(old)).
		Str(xglog.FieldNewStatus, string(status)).
		Msg("session status changed")
	return true
}

// OnStatus implements ports.EventHandler.
func (s *Session) OnStatus(status model.Status) {
	if s.setStatus(status) {
		s.emit(model.EventSessionStatus, model.StatusPayload{Name: s.name, Status: status})
	}
}

// OnEvent implements ports.EventHandler. Messages with media are resolved
// off the engine's goroutine before they are emitted.
func (s *Session) OnEvent(event string, payload any) {
	msg, ok := payload.(*model.Message)
	if !ok || msg == nil || !s.engine.HasMedia(msg) {
		s.emit(event, payload)
		return
	}
	if !s.work.Go(func() {
		s.emit(event, s.media.Process(s.ctx, s.name, s.engine, msg))
	}) {
		s.emit(event, msg)
	}
}

// start connects the engine. A connect error moves the session to FAILED
// and is returned for logging; the session stays registered.
func (s *Session) start() error {
	ctx, cancel := context.WithTimeout(s.ctx, connectTimeout)
	defer cancel()

	if err := s.engine.Connect(ctx, s); err != nil {
		s.OnStatus(model.StatusFailed)
		return err
	}
	return nil
}

// stop disconnects the engine. In-flight webhook deliveries are not
// affected; pending media work is given a bounded time to finish.
func (s *Session) stop(ctx context.Context, logout bool) error {
	var errs []error
	if logout {
		if le, ok := s.engine.(ports.LogoutEngine); ok {
			if err := le.Logout(ctx); err != nil {
				errs = append(errs, fmt.Errorf("logout: %w", err))
			}
		}
	}
	s.cancel()
	if err := s.engine.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	s.OnStatus(model.StatusStopped)

	drainCtx, cancel := context.WithTimeout(ctx, mediaDrainTimeout)
	defer cancel()
	if err := s.work.CloseAndWait(drainCtx); err != nil {
		s.logger.Warn().Err(err).Msg("media processing did not finish before stop")
	}
	if len(errs) > 0 {
		return fmt.Errorf("stop session '%s': %v", s.name, errs)
	}
	return nil
}

func (s *Session) Me(ctx context.Context) (*model.MeInfo, error) {
	return s.engine.Me(ctx)
}

func (s *Session) SendText(ctx context.Context, req model.TextRequest) (*model.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msg, err := s.engine.SendText(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.media.Process(ctx, s.name, s.engine, msg), nil
}

// Reply is SendText with a mandatory quoted message.
func (s *Session) Reply(ctx context.Context, req model.TextRequest) (*model.Message, error) {
	if req.ReplyTo == "" {
		return nil, fmt.Errorf("%w: reply_to is required", model.ErrValidation)
	}
	return s.SendText(ctx, req)
}

func (s *Session) SendFile(ctx context.Context, kind model.MediaKind, req model.FileRequest) (*model.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	msg, err := s.engine.SendMedia(ctx, kind, req)
	if err != nil {
		return nil, err
	}
	return s.media.Process(ctx, s.name, s.engine, msg), nil
}

func (s *Session) SendSeen(ctx context.Context, req model.SeenRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.engine.SendSeen(ctx, req)
}

func (s *Session) Chats(ctx context.Context) ([]model.Chat, error) {
	return s.engine.Chats(ctx)
}

func (s *Session) DeleteChat(ctx context.Context, chatID string) error {
	return s.engine.DeleteChat(ctx, chatID)
}

// ChatMessages reads history; with DownloadMedia each message goes through
// the media manager.
func (s *Session) ChatMessages(ctx context.Context, chatID string, q model.MessagesQuery) ([]*model.Message, error) {
	if q.Limit <= 0 {
		q.Limit = model.DefaultMessagesLimit
	}
	msgs, err := s.engine.ChatMessages(ctx, chatID, q.Limit)
	if err != nil {
		return nil, err
	}
	if !q.DownloadMedia {
		return msgs, nil
	}
	for i, m := range msgs {
		msgs[i] = s.media.Process(ctx, s.name, s.engine, m)
	}
	return msgs, nil
}

func (s *Session) ClearMessages(ctx context.Context, chatID string) error {
	return s.engine.ClearMessages(ctx, chatID)
}

func (s *Session) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return s.engine.DeleteMessage(ctx, chatID, messageID)
}

func (s *Session) EditMessage(ctx context.Context, chatID, messageID string, req model.EditMessageRequest) (*model.Message, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrValidation)
	}
	return s.engine.EditMessage(ctx, chatID, messageID, req)
}
