// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/store"
)

// EnvPrefix is shared by every environment variable the loader reads.
const EnvPrefix = "CHATGATE_"

const (
	EnvEngine              = EnvPrefix + "ENGINE"
	EnvBridgeURL           = EnvPrefix + "BRIDGE_URL"
	EnvAPIKey              = EnvPrefix + "API_KEY"
	EnvListen              = EnvPrefix + "LISTEN"
	EnvMetricsListen       = EnvPrefix + "METRICS_LISTEN"
	EnvRateLimit           = EnvPrefix + "RATE_LIMIT"
	EnvRestartAllSessions  = EnvPrefix + "RESTART_ALL_SESSIONS"
	EnvStartSessions       = EnvPrefix + "START_SESSIONS"
	EnvHookURL             = EnvPrefix + "HOOK_URL"
	EnvHookEvents          = EnvPrefix + "HOOK_EVENTS"
	EnvHookHMACKey         = EnvPrefix + "HOOK_HMAC_KEY"
	EnvHookRetryAttempts   = EnvPrefix + "HOOK_RETRIES_ATTEMPTS"
	EnvHookRetryDelay      = EnvPrefix + "HOOK_RETRIES_DELAY_SECONDS"
	EnvHookCustomHeaders   = EnvPrefix + "HOOK_CUSTOM_HEADERS"
	EnvFilesFolder         = EnvPrefix + "FILES_FOLDER"
	EnvFilesURL            = EnvPrefix + "FILES_URL"
	EnvFilesLifetime       = EnvPrefix + "FILES_LIFETIME"
	EnvFilesMimetypes      = EnvPrefix + "FILES_MIMETYPES"
	EnvProxyServer         = EnvPrefix + "PROXY_SERVER"
	EnvProxyUsername       = EnvPrefix + "PROXY_USERNAME"
	EnvProxyPassword       = EnvPrefix + "PROXY_PASSWORD"
	EnvStoreBackend        = EnvPrefix + "STORE_BACKEND"
	EnvStorePath           = EnvPrefix + "STORE_PATH"
	EnvRedisAddr           = EnvPrefix + "REDIS_ADDR"
	EnvRedisPassword       = EnvPrefix + "REDIS_PASSWORD"
	EnvRedisDB             = EnvPrefix + "REDIS_DB"
	EnvLogLevel            = EnvPrefix + "LOG_LEVEL"
	EnvOTelEnabled         = EnvPrefix + "OTEL_ENABLED"
	EnvOTelExporter        = EnvPrefix + "OTEL_EXPORTER"
	EnvOTelEndpoint        = EnvPrefix + "OTEL_ENDPOINT"
	EnvOTelSampling        = EnvPrefix + "OTEL_SAMPLING"
	EnvShutdownTimeout     = EnvPrefix + "SHUTDOWN_TIMEOUT"
	defaultFilesFolderName = "chatgate-files"
)

// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
var ErrUnknownConfigField = errors.New("unknown config field")

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path, empty for ENV-only configuration.
func (l *Loader) Path() string { return l.configPath }

// Defaults returns the configuration used when neither file nor
// environment set a value.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
		Engine:          string(model.EngineMemory),
		API: APIConfig{
			ListenAddr: ":3000",
			RateLimit:  600,
		},
		Webhook: WebhookConfig{
			Events: []string{model.EventMessage},
			Retries: RetriesConfig{
				Attempts:     model.DefaultRetryAttempts,
				DelaySeconds: model.DefaultRetryDelaySeconds,
			},
		},
		Files: FilesConfig{
			Folder:   filepath.Join(os.TempDir(), defaultFilesFolderName),
			URL:      "http://localhost:3000/api/files/",
			Lifetime: 180 * time.Second,
		},
		Store: StoreConfig{
			Backend: store.BackendSQLite,
			Path:    "./.sessions",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	mergeEnv(&cfg)
	cfg.Engine = string(cfg.EngineID())
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Files.URL != "" && !strings.HasSuffix(cfg.Files.URL, "/") {
		cfg.Files.URL += "/"
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file on top of cfg with STRICT parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnv overrides cfg with every environment variable that is set.
func mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	cfg.ShutdownTimeout = ParseDuration(EnvShutdownTimeout, cfg.ShutdownTimeout)

	cfg.Engine = ParseString(EnvEngine, cfg.Engine)
	cfg.Bridge.URL = ParseString(EnvBridgeURL, cfg.Bridge.URL)

	cfg.API.ListenAddr = ParseString(EnvListen, cfg.API.ListenAddr)
	cfg.API.Key = ParseString(EnvAPIKey, cfg.API.Key)
	cfg.API.RateLimit = ParseInt(EnvRateLimit, cfg.API.RateLimit)
	cfg.Metrics.ListenAddr = ParseString(EnvMetricsListen, cfg.Metrics.ListenAddr)

	cfg.Sessions.RestartAll = ParseBool(EnvRestartAllSessions, cfg.Sessions.RestartAll)
	cfg.Sessions.Start = ParseStringList(EnvStartSessions, cfg.Sessions.Start)

	cfg.Webhook.URL = ParseString(EnvHookURL, cfg.Webhook.URL)
	cfg.Webhook.Events = ParseStringList(EnvHookEvents, cfg.Webhook.Events)
	cfg.Webhook.HMACKey = ParseString(EnvHookHMACKey, cfg.Webhook.HMACKey)
	cfg.Webhook.Retries.Attempts = ParseInt(EnvHookRetryAttempts, cfg.Webhook.Retries.Attempts)
	cfg.Webhook.Retries.DelaySeconds = ParseInt(EnvHookRetryDelay, cfg.Webhook.Retries.DelaySeconds)
	cfg.Webhook.CustomHeaders = ParseHeaders(EnvHookCustomHeaders, cfg.Webhook.CustomHeaders)

	cfg.Files.Folder = ParseString(EnvFilesFolder, cfg.Files.Folder)
	cfg.Files.URL = ParseString(EnvFilesURL, cfg.Files.URL)
	cfg.Files.Lifetime = ParseDuration(EnvFilesLifetime, cfg.Files.Lifetime)
	cfg.Files.Mimetypes = ParseStringList(EnvFilesMimetypes, cfg.Files.Mimetypes)

	cfg.Proxy.Servers = ParseStringList(EnvProxyServer, cfg.Proxy.Servers)
	cfg.Proxy.Username = ParseString(EnvProxyUsername, cfg.Proxy.Username)
	cfg.Proxy.Password = ParseString(EnvProxyPassword, cfg.Proxy.Password)

	cfg.Store.Backend = ParseString(EnvStoreBackend, cfg.Store.Backend)
	cfg.Store.Path = ParseString(EnvStorePath, cfg.Store.Path)
	cfg.Store.Redis.Addr = ParseString(EnvRedisAddr, cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = ParseString(EnvRedisPassword, cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = ParseInt(EnvRedisDB, cfg.Store.Redis.DB)

	cfg.Telemetry.Enabled = ParseBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvOTelSampling, cfg.Telemetry.SamplingRate)
}
