// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes sessions, messaging, chats and stored media over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/api/middleware"
	"github.com/ManuGH/chatgate/internal/domain/session/manager"
	"github.com/ManuGH/chatgate/internal/health"
	"github.com/ManuGH/chatgate/internal/log"
)

// maxBodyBytes bounds request bodies; inline base64 files are the largest.
const maxBodyBytes = 64 << 20

// defaultSessionName applies when a request body names no session.
const defaultSessionName = "default"

type Config struct {
	// APIKey enables X-Api-Key authentication when non-empty.
	APIKey string
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
	// FilesDir is where stored media is served from under /api/files/.
	FilesDir string
	// TracingService enables server spans when non-empty.
	TracingService string
	// Health backs /healthz and /readyz; a bare manager is used when nil.
	Health *health.Manager
}

type Server struct {
	cfg      Config
	sessions *manager.Manager
	health   *health.Manager
	logger   zerolog.Logger
	router   chi.Router
}

func New(cfg Config, sessions *manager.Manager) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: sessions,
		health:   cfg.Health,
		logger:   log.WithComponent("api"),
	}
	if s.health == nil {
		s.health = health.NewManager("")
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		TracingService: s.cfg.TracingService,
		EnableMetrics:  true,
		RateLimit:      s.cfg.RateLimit,
	})

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Group(func(r chi.Router) {
		r.Use(apiKeyAuth(s.cfg.APIKey))

		r.Route("/api/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/start", s.handleStartSession)
			r.Post("/stop", s.handleStopSession)
			r.Post("/logout", s.handleLogoutSession)
			r.Get("/{session}", s.handleGetSession)
			r.Get("/{session}/me", s.handleGetMe)
		})

		r.Post("/api/sendText", s.handleSendText)
		r.Post("/api/reply", s.handleReply)
		r.Post("/api/sendImage", s.handleSendFile(mediaImage))
		r.Post("/api/sendFile", s.handleSendFile(mediaFile))
		r.Post("/api/sendVoice", s.handleSendFile(mediaVoice))
		r.Post("/api/sendVideo", s.handleSendFile(mediaVideo))
		r.Post("/api/sendSeen", s.handleSendSeen)

		r.Route("/api/{session}/chats", func(r chi.Router) {
			r.Get("/", s.handleGetChats)
			r.Delete("/{chatId}", s.handleDeleteChat)
			r.Get("/{chatId}/messages", s.handleGetChatMessages)
			r.Delete("/{chatId}/messages", s.handleClearMessages)
			r.Delete("/{chatId}/messages/{messageId}", s.handleDeleteMessage)
			r.Put("/{chatId}/messages/{messageId}", s.handleEditMessage)
		})

		if s.cfg.FilesDir != "" {
			r.Handle("/api/files/*", s.filesHandler())
		}
	})

	return r
}

// decodeJSON reads a JSON body into v. Malformed input is reported as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeProblem(w, r, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

func sessionName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return defaultSessionName
	}
	return name
}
