// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

type startSessionRequest struct {
	Name   string               `json:"name"`
	Config *model.SessionConfig `json:"config,omitempty"`
}

type stopSessionRequest struct {
	Name   string `json:"name"`
	Logout bool   `json:"logout"`
}

type logoutSessionRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	info, err := s.sessions.Start(r.Context(), sessionName(req.Name), req.Config)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	var req stopSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.sessions.Stop(r.Context(), sessionName(req.Name), req.Logout); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogoutSession(w http.ResponseWriter, r *http.Request) {
	var req logoutSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.sessions.Logout(r.Context(), sessionName(req.Name)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	all := false
	if v := r.URL.Query().Get("all"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeProblem(w, r, http.StatusUnprocessableEntity, CodeValidation, "all must be a boolean")
			return
		}
		all = parsed
	}
	infos, err := s.sessions.ListSessions(r.Context(), all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.GetSession(chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.sessions.Me(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, me)
}
