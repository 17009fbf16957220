// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/chatgate/internal/config"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/version"
)

// EnvConfigPath names the YAML file when --config is not given.
const EnvConfigPath = config.EnvPrefix + "CONFIG"

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "chatgate",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}

	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "chatgate",
		Version: cfg.Version,
	})

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("configuration loaded")

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.API.ListenAddr).
		Msg("starting chatgate")

	logger.Info().Msgf("→ Engine: %s", cfg.EngineID())
	if cfg.Bridge.URL != "" {
		logger.Info().Msgf("→ Bridge: %s", maskURL(cfg.Bridge.URL))
	}
	logger.Info().Msgf("→ Store: %s", cfg.Store.Backend)
	if cfg.Webhook.URL != "" {
		logger.Info().Msgf("→ Global webhook: %s (events: %s)", maskURL(cfg.Webhook.URL), strings.Join(cfg.Webhook.Events, ","))
	}
	logger.Info().Msgf("→ Files: %s (lifetime %s)", cfg.Files.Folder, cfg.Files.Lifetime)
	if cfg.API.Key != "" {
		logger.Info().Msg("→ API key: configured")
	} else {
		logger.Warn().
			Str("security", "weak").
			Msg("→ API key: NOT configured (Auth Disabled). Set CHATGATE_API_KEY for security.")
	}

	if err := run(ctx, cfg, path); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}
