// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package memory is an in-process chat engine. Outgoing messages are kept
// in memory and inbound traffic is injected with Receive.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
)

const maxRemoteFileSize = 64 << 20

// ErrNotConnected is returned by operations on a disconnected engine.
var ErrNotConnected = errors.New("memory engine: not connected")

type attachment struct {
	mimetype string
	filename string
	data     []byte
}

type chat struct {
	id       string
	messages []model.Message
}

// Engine implements ports.Engine without any network peer.
type Engine struct {
	name   string
	cfg    *model.SessionConfig
	client *http.Client
	logger zerolog.Logger

	mu        sync.Mutex
	handler   ports.EventHandler
	connected bool
	chats     map[string]*chat
	media     map[string]attachment
}

var (
	_ ports.Engine       = (*Engine)(nil)
	_ ports.LogoutEngine = (*Engine)(nil)
)

func New(opts ports.EngineOptions) *Engine {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Engine{
		name:   opts.Name,
		cfg:    opts.Config,
		client: client,
		logger: opts.Logger,
		chats:  make(map[string]*chat),
		media:  make(map[string]attachment),
	}
}

func (e *Engine) option(key string) bool {
	if e.cfg == nil || e.cfg.Engine == nil {
		return false
	}
	v, _ := e.cfg.Engine[key].(bool)
	return v
}

func (e *Engine) ownID() string { return e.name + "@c.us" }

// Connect reports WORKING right away. With engine option "failConnect" set
// it fails instead, which is how callers exercise the FAILED path.
func (e *Engine) Connect(_ context.Context, h ports.EventHandler) error {
	if e.option("failConnect") {
		return fmt.Errorf("memory engine: connect refused for %q", e.name)
	}
	e.mu.Lock()
	e.handler = h
	e.connected = true
	e.mu.Unlock()

	h.OnStatus(model.StatusWorking)
	h.OnEvent(model.EventStateChange, map[string]any{"state": "CONNECTED"})
	return nil
}

func (e *Engine) Disconnect(context.Context) error {
	e.mu.Lock()
	e.connected = false
	e.handler = nil
	e.mu.Unlock()
	return nil
}

// Logout forgets every chat and attachment.
func (e *Engine) Logout(context.Context) error {
	e.mu.Lock()
	e.chats = make(map[string]*chat)
	e.media = make(map[string]attachment)
	e.mu.Unlock()
	return nil
}

func (e *Engine) emit(event string, payload any) {
	e.mu.Lock()
	h := e.handler
	e.mu.Unlock()
	if h != nil {
		h.OnEvent(event, payload)
	}
}

func (e *Engine) checkConnected() error {
	if !e.connected {
		return ErrNotConnected
	}
	return nil
}

func (e *Engine) Me(context.Context) (*model.MeInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkConnected(); err != nil {
		return nil, err
	}
	return &model.MeInfo{ID: e.ownID(), PushName: e.name}, nil
}

// store appends msg to its chat and returns a copy for the caller.
func (e *Engine) store(chatID string, msg model.Message) *model.Message {
	c, ok := e.chats[chatID]
	if !ok {
		c = &chat{id: chatID}
		e.chats[chatID] = c
	}
	c.messages = append(c.messages, msg)
	return &msg
}

func (e *Engine) outgoing(chatID, body string) model.Message {
	return model.Message{
		ID:        "true_" + chatID + "_" + uuid.NewString(),
		Timestamp: time.Now().Unix(),
		From:      e.ownID(),
		To:        chatID,
		FromMe:    true,
		Body:      body,
	}
}

func (e *Engine) SendText(_ context.Context, req model.TextRequest) (*model.Message, error) {
	e.mu.Lock()
	if err := e.checkConnected(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	msg := e.outgoing(req.ChatID, req.Text)
	msg.ReplyTo = req.ReplyTo
	out := e.store(req.ChatID, msg)
	e.mu.Unlock()

	e.emit(model.EventMessageAny, clone(out))
	return out, nil
}

func (e *Engine) SendMedia(ctx context.Context, kind model.MediaKind, req model.FileRequest) (*model.Message, error) {
	data, mimetype, err := e.fileBytes(ctx, req.File)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if err := e.checkConnected(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	msg := e.outgoing(req.ChatID, req.Caption)
	msg.HasMedia = true
	msg.Raw = map[string]any{"type": string(kind)}
	e.media[msg.ID] = attachment{mimetype: mimetype, filename: req.File.Filename, data: data}
	out := e.store(req.ChatID, msg)
	e.mu.Unlock()

	e.emit(model.EventMessageAny, clone(out))
	return out, nil
}

func (e *Engine) fileBytes(ctx context.Context, f model.File) ([]byte, string, error) {
	if f.Data != "" {
		data, err := f.Bytes()
		return data, f.Mimetype, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: file.url: %v", model.ErrValidation, err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("memory engine: fetch %s: %w", f.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("memory engine: fetch %s: status %d", f.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteFileSize))
	if err != nil {
		return nil, "", fmt.Errorf("memory engine: read %s: %w", f.URL, err)
	}
	mimetype := f.Mimetype
	if mimetype == "" {
		mimetype = resp.Header.Get("Content-Type")
	}
	return data, mimetype, nil
}

func (e *Engine) SendSeen(_ context.Context, req model.SeenRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkConnected()
}

// Receive injects an inbound message as if a contact had sent it.
func (e *Engine) Receive(msg model.Message) *model.Message {
	return e.receive(msg, nil)
}

// ReceiveMedia injects an inbound message with an attachment.
func (e *Engine) ReceiveMedia(msg model.Message, mimetype, filename string, data []byte) *model.Message {
	return e.receive(msg, &attachment{mimetype: mimetype, filename: filename, data: data})
}

func (e *Engine) receive(msg model.Message, att *attachment) *model.Message {
	if msg.ID == "" {
		msg.ID = "false_" + msg.From + "_" + uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	if msg.To == "" {
		msg.To = e.ownID()
	}
	msg.FromMe = false

	e.mu.Lock()
	if att != nil {
		msg.HasMedia = true
		e.media[msg.ID] = *att
	}
	out := e.store(msg.From, msg)
	e.mu.Unlock()

	e.emit(model.EventMessage, clone(out))
	e.emit(model.EventMessageAny, clone(out))
	return out
}

func (e *Engine) Chats(context.Context) ([]model.Chat, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkConnected(); err != nil {
		return nil, err
	}
	chats := make([]model.Chat, 0, len(e.chats))
	for _, c := range e.chats {
		var ts int64
		if n := len(c.messages); n > 0 {
			ts = c.messages[n-1].Timestamp
		}
		chats = append(chats, model.Chat{ID: c.id, Timestamp: ts})
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].Timestamp != chats[j].Timestamp {
			return chats[i].Timestamp > chats[j].Timestamp
		}
		return chats[i].ID < chats[j].ID
	})
	return chats, nil
}

func (e *Engine) lookupChat(chatID string) (*chat, error) {
	if err := e.checkConnected(); err != nil {
		return nil, err
	}
	c, ok := e.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: chat '%s'", model.ErrNotFound, chatID)
	}
	return c, nil
}

func (e *Engine) DeleteChat(_ context.Context, chatID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.lookupChat(chatID)
	if err != nil {
		return err
	}
	for _, m := range c.messages {
		delete(e.media, m.ID)
	}
	delete(e.chats, chatID)
	return nil
}

// ChatMessages returns the newest limit messages, oldest first.
func (e *Engine) ChatMessages(_ context.Context, chatID string, limit int) ([]*model.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.lookupChat(chatID)
	if err != nil {
		return nil, err
	}
	msgs := c.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*model.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out = append(out, &m)
	}
	return out, nil
}

func (e *Engine) ClearMessages(_ context.Context, chatID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.lookupChat(chatID)
	if err != nil {
		return err
	}
	for _, m := range c.messages {
		delete(e.media, m.ID)
	}
	c.messages = nil
	return nil
}

func (e *Engine) DeleteMessage(_ context.Context, chatID, messageID string) error {
	e.mu.Lock()
	c, err := e.lookupChat(chatID)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	idx := c.find(messageID)
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: message '%s'", model.ErrNotFound, messageID)
	}
	c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
	delete(e.media, messageID)
	e.mu.Unlock()

	e.emit(model.EventMessageRevoked, map[string]any{"id": messageID, "chatId": chatID})
	return nil
}

func (e *Engine) EditMessage(_ context.Context, chatID, messageID string, req model.EditMessageRequest) (*model.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.lookupChat(chatID)
	if err != nil {
		return nil, err
	}
	idx := c.find(messageID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: message '%s'", model.ErrNotFound, messageID)
	}
	if !c.messages[idx].FromMe {
		return nil, fmt.Errorf("%w: only own messages can be edited", model.ErrValidation)
	}
	c.messages[idx].Body = req.Text
	m := c.messages[idx]
	return &m, nil
}

func (c *chat) find(messageID string) int {
	for i := range c.messages {
		if c.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (e *Engine) HasMedia(msg *model.Message) bool { return msg.HasMedia }

func (e *Engine) MessageID(msg *model.Message) string { return msg.ID }

func (e *Engine) Mimetype(msg *model.Message) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.media[msg.ID].mimetype
}

func (e *Engine) Filename(msg *model.Message) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.media[msg.ID].filename
}

// MediaBuffer returns nil when the attachment is gone.
func (e *Engine) MediaBuffer(_ context.Context, msg *model.Message) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	att, ok := e.media[msg.ID]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), att.data...), nil
}

func clone(m *model.Message) *model.Message {
	c := *m
	return &c
}
