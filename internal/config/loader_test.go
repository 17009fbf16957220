// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	got, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v-test"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.GlobalWebhook())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
engine: bridge
bridge:
  url: http://bridge:8080
api:
  listenAddr: ":8080"
  key: secret
webhook:
  url: https://hooks.example.com/in
  events: [message, session.status]
  hmacKey: k
  retries:
    attempts: 3
files:
  url: https://files.example.com/api/files
  lifetime: 60s
  mimetypes: [image/, audio/]
store:
  backend: Memory
sessions:
  start: [default]
`)
	t.Setenv(EnvHookRetryAttempts, "5")
	t.Setenv(EnvFilesLifetime, "90")
	t.Setenv(EnvHookCustomHeaders, "X-A: 1;X-B:2")

	got, err := NewLoader(path, "v-test").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v-test"
	want.Engine = "BRIDGE"
	want.Bridge.URL = "http://bridge:8080"
	want.API.ListenAddr = ":8080"
	want.API.Key = "secret"
	want.Webhook = WebhookConfig{
		URL:           "https://hooks.example.com/in",
		Events:        []string{"message", "session.status"},
		HMACKey:       "k",
		Retries:       RetriesConfig{Attempts: 5, DelaySeconds: 2},
		CustomHeaders: []model.CustomHeader{{Name: "X-A", Value: "1"}, {Name: "X-B", Value: "2"}},
	}
	want.Files.URL = "https://files.example.com/api/files/"
	want.Files.Lifetime = 90 * time.Second
	want.Files.Mimetypes = []string{"image/", "audio/"}
	want.Store.Backend = "memory"
	want.Sessions.Start = []string{"default"}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	hook := got.GlobalWebhook()
	require.NotNil(t, hook)
	assert.Equal(t, "k", hook.HMAC.Key)
	attempts, delay := hook.RetryPolicy()
	assert.Equal(t, 5, attempts)
	assert.Equal(t, 2, delay)
}

func TestLoad_StrictFile(t *testing.T) {
	_, err := NewLoader(writeConfig(t, "engine: MEMORY\nunknownKey: 1\n"), "").Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)

	_, err = NewLoader(writeConfig(t, "engine: MEMORY\n---\nengine: BRIDGE\n"), "").Load()
	require.ErrorContains(t, err, "multiple documents")

	_, err = NewLoader(filepath.Join(t.TempDir(), "config.json"), "").Load()
	require.ErrorContains(t, err, "only YAML supported")

	cfg, err := NewLoader(writeConfig(t, ""), "").Load()
	require.NoError(t, err, "an empty file keeps defaults")
	assert.Equal(t, "MEMORY", cfg.Engine)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"defaults", func(*AppConfig) {}, ""},
		{"unknown engine", func(c *AppConfig) { c.Engine = "VENOM" }, "Engine"},
		{"bridge without url", func(c *AppConfig) { c.Engine = "BRIDGE" }, "Bridge.URL"},
		{"bad store backend", func(c *AppConfig) { c.Store.Backend = "mongo" }, "Store.Backend"},
		{"redis without addr", func(c *AppConfig) { c.Store.Backend = "redis"; c.Store.Redis.Addr = "" }, "Store.Redis.Addr"},
		{"zero retries", func(c *AppConfig) { c.Webhook.Retries.Attempts = 0 }, "Webhook.Retries.Attempts"},
		{"bad hook url", func(c *AppConfig) { c.Webhook.URL = "hooks.example.com" }, "Webhook"},
		{"unknown hook event", func(c *AppConfig) {
			c.Webhook.URL = "https://hooks.example.com"
			c.Webhook.Events = []string{"message.sent"}
		}, "unknown webhook event"},
		{"relative files url", func(c *AppConfig) { c.Files.URL = "/api/files/" }, "Files.URL"},
		{"bad listen", func(c *AppConfig) { c.API.ListenAddr = "3000" }, "API.ListenAddr"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "LogLevel"},
		{"telemetry exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "Telemetry.Exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
