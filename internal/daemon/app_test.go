// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/chatgate/internal/config"
	sessionmgr "github.com/ManuGH/chatgate/internal/domain/session/manager"
	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/store"
)

// blockingManager stands in for the HTTP servers and reports when Run
// reached its lifecycle goroutine.
type blockingManager struct {
	started chan struct{}
}

func (b *blockingManager) Start(ctx context.Context) error {
	close(b.started)
	<-ctx.Done()
	return nil
}

func (b *blockingManager) Shutdown(context.Context) error { return nil }
func (b *blockingManager) RegisterShutdownHook(string, ShutdownHook) {}

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(zerolog.Nop(), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

func TestApp_ReloadAppliesSessionSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: MEMORY\n"), 0o600))

	loader := config.NewLoader(path, "test")
	initial, err := loader.Load()
	require.NoError(t, err)

	sessions := sessionmgr.New(SessionSettings(initial), sessionmgr.Deps{
		Store:  store.NewMemoryStore(),
		Logger: zerolog.Nop(),
	})
	holder := config.NewHolder(initial, loader)
	fake := &blockingManager{started: make(chan struct{})}
	app := NewApp(zerolog.Nop(), fake, holder, sessions)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case <-fake.started:
	case <-time.After(2 * time.Second):
		t.Fatal("manager was not started")
	}

	require.NoError(t, os.WriteFile(path, []byte(
		"engine: MEMORY\n"+
			"proxy:\n  servers:\n    - http://proxy.local:3128\n"+
			"files:\n  mimetypes:\n    - image\n"+
			"webhook:\n  url: http://hooks.local/in\n"), 0o600))
	require.NoError(t, holder.Reload(ctx))

	got := sessions.Settings()
	assert.Equal(t, model.EngineMemory, got.Engine)
	assert.Equal(t, []string{"http://proxy.local:3128"}, got.ProxyServers)
	assert.Equal(t, []string{"image"}, got.MediaMimetypes)
	require.NotNil(t, got.GlobalWebhook)
	assert.Equal(t, "http://hooks.local/in", got.GlobalWebhook.URL)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSessionSettings(t *testing.T) {
	cfg := config.Defaults()
	assert.Nil(t, SessionSettings(cfg).GlobalWebhook)

	cfg.Engine = "bridge"
	cfg.Bridge.URL = "ws://engine:8080"
	cfg.Webhook.URL = "http://hooks.local/in"
	cfg.Webhook.HMACKey = "k"
	s := SessionSettings(cfg)
	assert.Equal(t, model.EngineBridge, s.Engine)
	assert.Equal(t, "ws://engine:8080", s.BridgeURL)
	require.NotNil(t, s.GlobalWebhook)
	require.NotNil(t, s.GlobalWebhook.HMAC)
	assert.Equal(t, "k", s.GlobalWebhook.HMAC.Key)
}
