// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/store"
	"github.com/ManuGH/chatgate/internal/engine"
	"github.com/ManuGH/chatgate/internal/validate"
)

var (
	storeBackends = []string{store.BackendSQLite, store.BackendBadger, store.BackendRedis, store.BackendMemory}
	exporters     = []string{"grpc", "http"}
	httpSchemes   = []string{"http", "https"}
)

// Validate checks a resolved AppConfig and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		v.AddError("LogLevel", err.Error(), cfg.LogLevel)
	}
	v.PositiveDuration("ShutdownTimeout", cfg.ShutdownTimeout)

	id := cfg.EngineID()
	if _, err := engine.Lookup(id); err != nil {
		v.AddError("Engine", err.Error(), cfg.Engine)
	}
	if id == model.EngineBridge {
		v.URL("Bridge.URL", cfg.Bridge.URL, []string{"http", "https", "ws", "wss"})
	}

	v.ListenAddr("API.ListenAddr", cfg.API.ListenAddr)
	v.NonNegative("API.RateLimit", cfg.API.RateLimit)
	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("Metrics.ListenAddr", cfg.Metrics.ListenAddr)
	}

	for _, name := range cfg.Sessions.Start {
		v.NotEmpty("Sessions.Start", name)
	}

	v.Positive("Webhook.Retries.Attempts", cfg.Webhook.Retries.Attempts)
	v.Positive("Webhook.Retries.DelaySeconds", cfg.Webhook.Retries.DelaySeconds)
	if hook := cfg.GlobalWebhook(); hook != nil {
		v.Custom("Webhook", hook.URL, func(any) error { return hook.Validate() })
	}

	v.NotEmpty("Files.Folder", cfg.Files.Folder)
	v.URL("Files.URL", cfg.Files.URL, httpSchemes)
	v.PositiveDuration("Files.Lifetime", cfg.Files.Lifetime)

	for _, server := range cfg.Proxy.Servers {
		v.NotEmpty("Proxy.Servers", server)
	}

	v.OneOf("Store.Backend", cfg.Store.Backend, storeBackends)
	switch cfg.Store.Backend {
	case store.BackendSQLite, store.BackendBadger:
		v.NotEmpty("Store.Path", cfg.Store.Path)
	case store.BackendRedis:
		v.NotEmpty("Store.Redis.Addr", cfg.Store.Redis.Addr)
		v.NonNegative("Store.Redis.DB", cfg.Store.Redis.DB)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, exporters)
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
