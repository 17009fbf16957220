// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, "webhook:\n  url: https://a.example.com\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	var got []string
	h.OnReload(func(c AppConfig) { got = append(got, c.Webhook.URL) })

	require.NoError(t, os.WriteFile(path, []byte("webhook:\n  url: https://b.example.com\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))
	assert.Equal(t, []string{"https://b.example.com"}, got)
	assert.Equal(t, "https://b.example.com", h.Get().Webhook.URL)
}

func TestHolder_ReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, "engine: MEMORY\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	called := false
	h.OnReload(func(AppConfig) { called = true })

	require.NoError(t, os.WriteFile(path, []byte("engine: VENOM\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.False(t, called)
	assert.Equal(t, "MEMORY", h.Get().Engine)
}

func TestHolder_WatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "files:\n  mimetypes: [image/]\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	h.debounce = 10 * time.Millisecond

	var mu sync.Mutex
	var latest []string
	h.OnReload(func(c AppConfig) {
		mu.Lock()
		latest = c.Files.Mimetypes
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// Keep writing until the watcher is up and has picked a write up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("files:\n  mimetypes: [audio/]\n"), 0o600)
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1 && latest[0] == "audio/"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestHolder_WatchWithoutFile(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", ""))
	assert.NoError(t, h.Watch(context.Background()))
}
