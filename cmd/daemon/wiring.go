// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/chatgate/internal/api"
	"github.com/ManuGH/chatgate/internal/config"
	"github.com/ManuGH/chatgate/internal/daemon"
	sessionmgr "github.com/ManuGH/chatgate/internal/domain/session/manager"
	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/store"
	"github.com/ManuGH/chatgate/internal/health"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/media"
	"github.com/ManuGH/chatgate/internal/platform/httpx"
	"github.com/ManuGH/chatgate/internal/telemetry"
)

const (
	serviceName    = "chatgate"
	webhookTimeout = 10 * time.Second
)

// run wires the runtime from cfg and blocks until ctx ends.
func run(ctx context.Context, cfg config.AppConfig, configPath string) error {
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		tp = nil
	}
	tracingService := ""
	if tp != nil && cfg.Telemetry.Enabled {
		tracingService = serviceName
	}

	st, err := store.Open(store.Options{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		Namespace: cfg.EngineID().Namespace(),
		Redis: store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		},
	})
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if err := st.Init(ctx); err != nil {
		_ = st.Close()
		return fmt.Errorf("init session store: %w", err)
	}

	files := media.NewFileStorage(cfg.Files.Folder, cfg.Files.URL, cfg.Files.Lifetime, xglog.WithComponent("media"))
	if err := files.Purge(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.Files.Folder).Msg("failed to purge media folder")
	}

	sessions := sessionmgr.New(daemon.SessionSettings(cfg), sessionmgr.Deps{
		Store:      st,
		Storage:    files,
		HTTPClient: httpx.NewInstrumentedClient(webhookTimeout),
		Logger:     xglog.WithComponent("sessions"),
	})

	if err := sessions.Restore(ctx, sessionmgr.RecoveryOptions{
		RestartAll: cfg.Sessions.RestartAll,
		Predefined: cfg.Sessions.Start,
	}); err != nil {
		logger.Warn().Err(err).Str("event", "sessions.restore_partial").Msg("some sessions failed to restore")
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.Probe("session_store", func(ctx context.Context) error {
		_, err := st.List(ctx)
		return err
	}))
	hm.RegisterChecker(health.NewDirChecker("files_folder", files.Dir()))
	hm.RegisterChecker(sessionsChecker(sessions))

	apiServer := api.New(api.Config{
		APIKey:         cfg.API.Key,
		RateLimit:      cfg.API.RateLimit,
		FilesDir:       files.Dir(),
		TracingService: tracingService,
		Health:         hm,
	}, sessions)

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.API.ListenAddr, cfg.ShutdownTimeout), daemon.Deps{
		Logger:         logger,
		APIHandler:     apiServer.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.Metrics.ListenAddr,
	})
	if err != nil {
		_ = sessions.Shutdown(context.WithoutCancel(ctx))
		files.Close()
		_ = st.Close()
		return fmt.Errorf("create daemon manager: %w", err)
	}

	// LIFO: sessions stop first, the store closes last.
	if tp != nil {
		mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	}
	mgr.RegisterShutdownHook("store", func(context.Context) error { return st.Close() })
	mgr.RegisterShutdownHook("media", func(context.Context) error { files.Close(); return nil })
	mgr.RegisterShutdownHook("sessions", sessions.Shutdown)

	holder := config.NewHolder(cfg, config.NewLoader(configPath, cfg.Version))
	return daemon.NewApp(logger, mgr, holder, sessions).Run(ctx)
}

// sessionsChecker reports degraded while any live session sits in FAILED.
func sessionsChecker(sessions *sessionmgr.Manager) health.Checker {
	return health.Func("sessions", func(ctx context.Context) health.CheckResult {
		infos, err := sessions.ListSessions(ctx, false)
		if err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: err.Error()}
		}
		var failed []string
		for _, info := range infos {
			if info.Status == model.StatusFailed {
				failed = append(failed, info.Name)
			}
		}
		if len(failed) > 0 {
			return health.CheckResult{
				Status:  health.StatusDegraded,
				Message: "failed sessions: " + strings.Join(failed, ","),
			}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprintf("%d live", len(infos))}
	})
}
