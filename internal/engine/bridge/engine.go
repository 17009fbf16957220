// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bridge drives an external chat-engine process over one WebSocket
// per session, exchanging JSON frames.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
	xglog "github.com/ManuGH/chatgate/internal/log"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
)

// Frame types.
const (
	FrameStatus   = "status"
	FrameEvent    = "event"
	FrameRequest  = "request"
	FrameResponse = "response"
)

// Error codes a bridge may attach to a failed response.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeValidation     = "VALIDATION"
	CodeNotImplemented = "NOT_IMPLEMENTED"
)

// ErrClosed is returned for requests on a closed connection.
var ErrClosed = errors.New("bridge: connection closed")

// Frame is the single wire message shape; Type selects which fields apply.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  any             `json:"params,omitempty"`
	Status  model.Status    `json:"status,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Engine implements ports.Engine against a remote bridge.
type Engine struct {
	name     string
	endpoint string
	cfg      *model.SessionConfig
	dialer   *websocket.Dialer
	logger   zerolog.Logger

	writeMu sync.Mutex
	mu      sync.Mutex
	conn    *websocket.Conn
	handler ports.EventHandler
	pending map[string]chan Frame
	closing bool
	done    chan struct{}
	stop    context.CancelFunc
}

var (
	_ ports.Engine       = (*Engine)(nil)
	_ ports.LogoutEngine = (*Engine)(nil)
)

// New validates the options and prepares the dialer; it does not connect.
func New(opts ports.EngineOptions) (*Engine, error) {
	endpoint, err := sessionEndpoint(opts.BridgeURL, opts.Name)
	if err != nil {
		return nil, err
	}
	dialer, err := newDialer(opts.Proxy)
	if err != nil {
		return nil, err
	}
	return &Engine{
		name:     opts.Name,
		endpoint: endpoint,
		cfg:      opts.Config,
		dialer:   dialer,
		logger:   opts.Logger.With().Str(xglog.FieldEngine, string(model.EngineBridge)).Logger(),
		pending:  make(map[string]chan Frame),
	}, nil
}

func sessionEndpoint(base, name string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("%w: bridge url is not configured", model.ErrValidation)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: bridge url: %v", model.ErrValidation, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("%w: bridge url scheme %q", model.ErrValidation, u.Scheme)
	}
	return u.JoinPath("sessions", name).String(), nil
}

// Connect dials the bridge, starts the read loop and asks the bridge to
// start the session with the engine config.
func (e *Engine) Connect(ctx context.Context, h ports.EventHandler) error {
	conn, resp, err := e.dialer.DialContext(ctx, e.endpoint, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("bridge: dial %s: %w (status %d)", e.endpoint, err, resp.StatusCode)
		}
		return fmt.Errorf("bridge: dial %s: %w", e.endpoint, err)
	}

	loopCtx, stop := context.WithCancel(context.Background())
	e.mu.Lock()
	e.conn = conn
	e.handler = h
	e.closing = false
	e.done = make(chan struct{})
	e.stop = stop
	done := e.done
	e.mu.Unlock()

	go e.readLoop(conn, h, done)
	go e.pingLoop(loopCtx, conn)

	var engineCfg map[string]any
	if e.cfg != nil {
		engineCfg = e.cfg.Engine
	}
	if err := e.call(ctx, "start", map[string]any{"name": e.name, "config": engineCfg}, nil); err != nil {
		_ = e.Disconnect(context.Background())
		return err
	}
	return nil
}

// Disconnect closes the socket and waits for the read loop to exit.
func (e *Engine) Disconnect(ctx context.Context) error {
	e.mu.Lock()
	conn, done, stop := e.conn, e.done, e.stop
	e.closing = true
	e.conn = nil
	e.mu.Unlock()
	if conn == nil {
		return nil
	}
	stop()

	e.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	e.writeMu.Unlock()
	_ = conn.Close()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) readLoop(conn *websocket.Conn, h ports.EventHandler, done chan struct{}) {
	defer close(done)
	defer e.failPending()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			e.mu.Lock()
			closing := e.closing
			e.mu.Unlock()
			if !closing {
				e.logger.Error().Err(err).Str(xglog.FieldSession, e.name).Msg("bridge connection lost")
				h.OnStatus(model.StatusFailed)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))

		switch f.Type {
		case FrameStatus:
			if !f.Status.Valid() {
				e.logger.Warn().Str("status", string(f.Status)).Msg("bridge sent unknown status")
				continue
			}
			h.OnStatus(f.Status)
		case FrameEvent:
			h.OnEvent(f.Event, decodePayload(f.Event, f.Payload))
		case FrameResponse:
			e.mu.Lock()
			ch, ok := e.pending[f.ID]
			delete(e.pending, f.ID)
			e.mu.Unlock()
			if ok {
				ch <- f
			}
		default:
			e.logger.Debug().Str("type", f.Type).Msg("ignoring unknown bridge frame")
		}
	}
}

func (e *Engine) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			e.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (e *Engine) failPending() {
	e.mu.Lock()
	pending := e.pending
	e.pending = make(map[string]chan Frame)
	e.mu.Unlock()
	for id, ch := range pending {
		ch <- Frame{Type: FrameResponse, ID: id, Error: ErrClosed.Error()}
	}
}

func decodePayload(event string, raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	if model.IsMessageEvent(event) {
		var msg model.Message
		if err := json.Unmarshal(raw, &msg); err == nil {
			return &msg
		}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// call sends one request and waits for the matching response or ctx.
func (e *Engine) call(ctx context.Context, method string, params, out any) error {
	id := uuid.NewString()
	ch := make(chan Frame, 1)

	e.mu.Lock()
	conn := e.conn
	if conn == nil {
		e.mu.Unlock()
		return ErrClosed
	}
	e.pending[id] = ch
	e.mu.Unlock()

	e.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := conn.WriteJSON(Frame{Type: FrameRequest, ID: id, Method: method, Params: params})
	e.writeMu.Unlock()
	if err != nil {
		e.forget(id)
		return fmt.Errorf("bridge: send %s: %w", method, err)
	}

	select {
	case f := <-ch:
		if f.Error != "" {
			return responseError(method, f)
		}
		if out != nil && len(f.Result) > 0 {
			if err := json.Unmarshal(f.Result, out); err != nil {
				return fmt.Errorf("bridge: decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		e.forget(id)
		return ctx.Err()
	}
}

func (e *Engine) forget(id string) {
	e.mu.Lock()
	delete(e.pending, id)
	e.mu.Unlock()
}

func responseError(method string, f Frame) error {
	switch f.Code {
	case CodeNotFound:
		return fmt.Errorf("%w: %s", model.ErrNotFound, f.Error)
	case CodeValidation:
		return fmt.Errorf("%w: %s", model.ErrValidation, f.Error)
	case CodeNotImplemented:
		return fmt.Errorf("%w: %s", model.ErrNotImplemented, f.Error)
	}
	return fmt.Errorf("bridge: %s: %s", method, f.Error)
}

func (e *Engine) Logout(ctx context.Context) error {
	return e.call(ctx, "logout", nil, nil)
}

func (e *Engine) Me(ctx context.Context) (*model.MeInfo, error) {
	var me model.MeInfo
	if err := e.call(ctx, "me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (e *Engine) SendText(ctx context.Context, req model.TextRequest) (*model.Message, error) {
	var msg model.Message
	if err := e.call(ctx, "sendText", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (e *Engine) SendMedia(ctx context.Context, kind model.MediaKind, req model.FileRequest) (*model.Message, error) {
	var msg model.Message
	params := struct {
		Kind model.MediaKind `json:"kind"`
		model.FileRequest
	}{Kind: kind, FileRequest: req}
	if err := e.call(ctx, "sendMedia", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (e *Engine) SendSeen(ctx context.Context, req model.SeenRequest) error {
	return e.call(ctx, "sendSeen", req, nil)
}

func (e *Engine) Chats(ctx context.Context) ([]model.Chat, error) {
	var chats []model.Chat
	if err := e.call(ctx, "getChats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (e *Engine) DeleteChat(ctx context.Context, chatID string) error {
	return e.call(ctx, "deleteChat", map[string]string{"chatId": chatID}, nil)
}

func (e *Engine) ChatMessages(ctx context.Context, chatID string, limit int) ([]*model.Message, error) {
	var msgs []*model.Message
	params := map[string]any{"chatId": chatID, "limit": limit}
	if err := e.call(ctx, "getChatMessages", params, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (e *Engine) ClearMessages(ctx context.Context, chatID string) error {
	return e.call(ctx, "clearMessages", map[string]string{"chatId": chatID}, nil)
}

func (e *Engine) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return e.call(ctx, "deleteMessage", map[string]string{"chatId": chatID, "messageId": messageID}, nil)
}

func (e *Engine) EditMessage(ctx context.Context, chatID, messageID string, req model.EditMessageRequest) (*model.Message, error) {
	var msg model.Message
	params := map[string]string{"chatId": chatID, "messageId": messageID, "text": req.Text}
	if err := e.call(ctx, "editMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (e *Engine) HasMedia(msg *model.Message) bool { return msg.HasMedia }

func (e *Engine) MessageID(msg *model.Message) string { return msg.ID }

func (e *Engine) Mimetype(msg *model.Message) string {
	if msg.Media != nil {
		return msg.Media.Mimetype
	}
	return ""
}

func (e *Engine) Filename(msg *model.Message) string {
	if msg.Media != nil {
		return msg.Media.Filename
	}
	return ""
}

// MediaBuffer fetches the attachment through a downloadMedia request.
func (e *Engine) MediaBuffer(ctx context.Context, msg *model.Message) ([]byte, error) {
	var res struct {
		Data string `json:"data"`
	}
	if err := e.call(ctx, "downloadMedia", map[string]string{"messageId": msg.ID}, &res); err != nil {
		return nil, err
	}
	if res.Data == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		return nil, fmt.Errorf("bridge: downloadMedia returned invalid base64: %w", err)
	}
	return data, nil
}
