// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
	"github.com/ManuGH/chatgate/internal/domain/session/store"
	"github.com/ManuGH/chatgate/internal/engine"
	"github.com/ManuGH/chatgate/internal/engine/memory"
	"github.com/ManuGH/chatgate/internal/media"
)

const filesURL = "http://localhost:3000/api/files/"

// engines records the memory engines built by the manager so tests can
// inject inbound traffic.
type engines struct {
	mu sync.Mutex
	m  map[string]*memory.Engine
}

func (e *engines) lookup(id model.EngineID) (ports.EngineConstructor, error) {
	if id != model.EngineMemory {
		return engine.Lookup(id)
	}
	return func(opts ports.EngineOptions) (ports.Engine, error) {
		eng := memory.New(opts)
		e.mu.Lock()
		e.m[opts.Name] = eng
		e.mu.Unlock()
		return eng, nil
	}, nil
}

func (e *engines) get(name string) *memory.Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m[name]
}

type harness struct {
	m       *Manager
	store   store.ConfigStore
	files   *media.FileStorage
	engines *engines
}

func newHarness(t *testing.T, st store.ConfigStore, settings Settings) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	if settings.Engine == "" {
		settings.Engine = model.EngineMemory
	}
	files := media.NewFileStorage(t.TempDir(), filesURL, time.Minute, zerolog.Nop())
	t.Cleanup(files.Close)

	engs := &engines{m: make(map[string]*memory.Engine)}
	m := New(settings, Deps{
		Store:   st,
		Storage: files,
		Lookup:  engs.lookup,
		Logger:  zerolog.Nop(),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return &harness{m: m, store: st, files: files, engines: engs}
}

func TestManager_StartTwiceConflicts(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	info, err := h.m.Start(ctx, "default", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWorking, info.Status)

	_, err = h.m.Start(ctx, "default", &model.SessionConfig{Metadata: map[string]string{"x": "y"}})
	require.ErrorIs(t, err, model.ErrConflict)

	got, err := h.m.GetSession("default")
	require.NoError(t, err)
	assert.Equal(t, model.StatusWorking, got.Status)
	assert.Empty(t, got.Config.Metadata, "first session must be untouched")
}

func TestManager_StartRequiresName(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	_, err := h.m.Start(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestManager_StartRejectsInvalidConfig(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	_, err := h.m.Start(context.Background(), "default", &model.SessionConfig{
		Webhooks: []model.WebhookConfig{{URL: "not a url", Events: []string{"message"}}},
	})
	require.ErrorIs(t, err, model.ErrValidation)

	names, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestManager_UnknownEngine(t *testing.T) {
	h := newHarness(t, nil, Settings{Engine: "VENOM"})
	_, err := h.m.Start(context.Background(), "default", nil)
	require.ErrorIs(t, err, model.ErrNotFound)

	names, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names, "nothing is persisted for an unknown engine")
}

func TestManager_ConnectFailureKeepsSessionAsFailed(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	info, err := h.m.Start(ctx, "broken", &model.SessionConfig{Engine: map[string]any{"failConnect": true}})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, info.Status)

	got, err := h.m.GetSession("broken")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)

	cfg, err := h.store.Get(ctx, "broken")
	require.NoError(t, err)
	require.NotNil(t, cfg, "config is persisted before connecting")
}

func TestManager_RestartAfterStop(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	first := newHarness(t, st, Settings{})
	_, err := first.m.Start(ctx, "default", &model.SessionConfig{Metadata: map[string]string{"team": "a"}})
	require.NoError(t, err)
	require.NoError(t, first.m.Stop(ctx, "default", false))
	_, err = first.m.GetSession("default")
	require.ErrorIs(t, err, model.ErrNotFound)

	second := newHarness(t, st, Settings{})
	require.NoError(t, second.m.Restore(ctx, RecoveryOptions{RestartAll: true}))
	info, err := second.m.GetSession("default")
	require.NoError(t, err)
	assert.Equal(t, model.StatusWorking, info.Status)
	assert.Equal(t, "a", info.Config.Metadata["team"])

	require.NoError(t, second.m.Stop(ctx, "default", true))

	third := newHarness(t, st, Settings{})
	require.NoError(t, third.m.Restore(ctx, RecoveryOptions{RestartAll: true}))
	_, err = third.m.GetSession("default")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManager_RestoreIsolatesFailures(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "good", &model.SessionConfig{}))
	require.NoError(t, st.Set(ctx, "bad", &model.SessionConfig{Engine: map[string]any{"failConnect": true}}))

	h := newHarness(t, st, Settings{})
	err := h.m.Restore(ctx, RecoveryOptions{RestartAll: true, Predefined: []string{"good", "extra"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	for name, want := range map[string]model.Status{
		"good":  model.StatusWorking,
		"bad":   model.StatusFailed,
		"extra": model.StatusWorking,
	} {
		info, err := h.m.GetSession(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, info.Status, name)
	}
}

func TestManager_StopUnknown(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	err := h.m.Stop(context.Background(), "ghost", false)
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), "POST /api/sessions/start")
}

func TestManager_LogoutStoredSession(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, "idle", &model.SessionConfig{}))

	require.NoError(t, h.m.Logout(ctx, "idle"))
	cfg, err := h.store.Get(ctx, "idle")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestManager_ListSessions(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	_, err := h.m.Start(ctx, "b-live", nil)
	require.NoError(t, err)
	require.NoError(t, h.store.Set(ctx, "a-stored", &model.SessionConfig{Metadata: map[string]string{"k": "v"}}))

	live, err := h.m.ListSessions(ctx, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "b-live", live[0].Name)
	require.NotNil(t, live[0].Me)
	assert.Equal(t, "b-live@c.us", live[0].Me.ID)

	all, err := h.m.ListSessions(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a-stored", all[0].Name)
	assert.Equal(t, model.StatusStopped, all[0].Status)
	assert.Nil(t, all[0].Me)
	assert.Equal(t, "v", all[0].Config.Metadata["k"])
	assert.Equal(t, "b-live", all[1].Name)

	raw, err := json.Marshal(all[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"me":null`)
}

func TestManager_SendImageReturnsMediaURL(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()

	_, err := h.m.Start(ctx, "default", nil)
	require.NoError(t, err)
	sess, err := h.m.Session("default")
	require.NoError(t, err)

	msg, err := sess.SendFile(ctx, model.MediaImage, model.FileRequest{
		ChatID: "123@c.us",
		File: model.File{
			Mimetype: "image/jpeg",
			Filename: "photo.jpg",
			Data:     base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, msg.Media)
	require.NotNil(t, msg.Media.URL)
	assert.True(t, strings.HasPrefix(*msg.Media.URL, filesURL), *msg.Media.URL)
	assert.True(t, strings.HasSuffix(*msg.Media.URL, ".jpg"), *msg.Media.URL)

	u, err := url.Parse(*msg.Media.URL)
	require.NoError(t, err)
	name, err := url.PathUnescape(path.Base(u.Path))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(h.files.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)
}

func TestManager_SendFileRequiresPayload(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	ctx := context.Background()
	_, err := h.m.Start(ctx, "default", nil)
	require.NoError(t, err)
	sess, err := h.m.Session("default")
	require.NoError(t, err)

	_, err = sess.SendFile(ctx, model.MediaFile, model.FileRequest{ChatID: "123@c.us"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

type hookReceiver struct {
	mu     sync.Mutex
	events []model.Event
	raw    []map[string]any
}

func (r *hookReceiver) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	var e model.Event
	var raw map[string]any
	_ = json.Unmarshal(body, &e)
	_ = json.Unmarshal(body, &raw)
	r.mu.Lock()
	r.events = append(r.events, e)
	r.raw = append(r.raw, raw)
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *hookReceiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestManager_InboundMessagesReachWebhooks(t *testing.T) {
	sessionHook := &hookReceiver{}
	globalHook := &hookReceiver{}
	sessionSrv := httptest.NewServer(http.HandlerFunc(sessionHook.handler))
	defer sessionSrv.Close()
	globalSrv := httptest.NewServer(http.HandlerFunc(globalHook.handler))
	defer globalSrv.Close()

	h := newHarness(t, nil, Settings{
		GlobalWebhook: &model.WebhookConfig{URL: globalSrv.URL, Events: []string{model.EventMessage}},
	})
	ctx := context.Background()
	_, err := h.m.Start(ctx, "default", &model.SessionConfig{
		Webhooks: []model.WebhookConfig{{URL: sessionSrv.URL, Events: []string{model.EventMessage}}},
	})
	require.NoError(t, err)

	eng := h.engines.get("default")
	require.NotNil(t, eng)
	eng.ReceiveMedia(model.Message{From: "555@c.us", Body: "look"}, "image/png", "pic.png", []byte("png-bytes"))

	require.Eventually(t, func() bool { return sessionHook.count() == 1 && globalHook.count() == 1 },
		5*time.Second, 10*time.Millisecond)

	sessionHook.mu.Lock()
	defer sessionHook.mu.Unlock()
	assert.Equal(t, model.EventMessage, sessionHook.events[0].Event)
	assert.Equal(t, "default", sessionHook.events[0].Session)

	payload, ok := sessionHook.raw[0]["payload"].(map[string]any)
	require.True(t, ok)
	mediaRef, ok := payload["media"].(map[string]any)
	require.True(t, ok, "inbound media is resolved before delivery")
	assert.True(t, strings.HasPrefix(mediaRef["url"].(string), filesURL))
}

func TestManager_ApplySettingsKeepsEngine(t *testing.T) {
	h := newHarness(t, nil, Settings{})
	h.m.ApplySettings(Settings{Engine: model.EngineBridge, MediaMimetypes: []string{"image/"}})

	got := h.m.Settings()
	assert.Equal(t, model.EngineMemory, got.Engine)
	assert.Equal(t, []string{"image/"}, got.MediaMimetypes)
}

func TestManager_ShutdownKeepsConfigs(t *testing.T) {
	st := store.NewMemoryStore()
	h := newHarness(t, st, Settings{})
	ctx := context.Background()
	for _, name := range []string{"one", "two"} {
		_, err := h.m.Start(ctx, name, nil)
		require.NoError(t, err)
	}

	require.NoError(t, h.m.Shutdown(ctx))
	live, err := h.m.ListSessions(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, live)

	names, err := st.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names)
}
