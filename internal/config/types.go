// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration from defaults, an optional
// YAML file and CHATGATE_* environment variables, in that order of
// increasing precedence.
package config

import (
	"time"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// AppConfig is the fully resolved configuration. The YAML tags define the
// config file schema; unknown keys are rejected.
type AppConfig struct {
	Version string `yaml:"-"`

	LogLevel        string        `yaml:"logLevel"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	Engine string       `yaml:"engine"`
	Bridge BridgeConfig `yaml:"bridge"`

	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Files     FilesConfig     `yaml:"files"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type BridgeConfig struct {
	URL string `yaml:"url"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// Key enables X-Api-Key authentication when non-empty.
	Key string `yaml:"key"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

type MetricsConfig struct {
	// ListenAddr enables the Prometheus listener when non-empty.
	ListenAddr string `yaml:"listenAddr"`
}

type SessionsConfig struct {
	RestartAll bool     `yaml:"restartAll"`
	Start      []string `yaml:"start"`
}

// WebhookConfig is the global webhook appended to every session.
type WebhookConfig struct {
	URL           string               `yaml:"url"`
	Events        []string             `yaml:"events"`
	HMACKey       string               `yaml:"hmacKey"`
	Retries       RetriesConfig        `yaml:"retries"`
	CustomHeaders []model.CustomHeader `yaml:"customHeaders"`
}

type RetriesConfig struct {
	Attempts     int `yaml:"attempts"`
	DelaySeconds int `yaml:"delaySeconds"`
}

type FilesConfig struct {
	Folder    string        `yaml:"folder"`
	URL       string        `yaml:"url"`
	Lifetime  time.Duration `yaml:"lifetime"`
	Mimetypes []string      `yaml:"mimetypes"`
}

type ProxyConfig struct {
	Servers  []string `yaml:"servers"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// EngineID is the normalized engine identifier.
func (c AppConfig) EngineID() model.EngineID {
	return model.ParseEngineID(c.Engine)
}

// GlobalWebhook converts the webhook section into a subscription. It
// returns nil when no URL is configured.
func (c AppConfig) GlobalWebhook() *model.WebhookConfig {
	if c.Webhook.URL == "" {
		return nil
	}
	w := &model.WebhookConfig{
		URL:           c.Webhook.URL,
		Events:        append([]string(nil), c.Webhook.Events...),
		Retries:       &model.RetriesConfig{Attempts: c.Webhook.Retries.Attempts, DelaySeconds: c.Webhook.Retries.DelaySeconds},
		CustomHeaders: append([]model.CustomHeader(nil), c.Webhook.CustomHeaders...),
	}
	if c.Webhook.HMACKey != "" {
		w.HMAC = &model.HMACConfig{Key: c.Webhook.HMACKey}
	}
	return w
}
