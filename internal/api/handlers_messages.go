// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/chatgate/internal/domain/session/manager"
	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/log"
)

const (
	mediaImage = model.MediaImage
	mediaFile  = model.MediaFile
	mediaVoice = model.MediaVoice
	mediaVideo = model.MediaVideo
)

// liveSession resolves the session named in a request body and tags the
// request context with it.
func (s *Server) liveSession(w http.ResponseWriter, r *http.Request, name string) (*manager.Session, *http.Request, bool) {
	sess, err := s.sessions.Session(sessionName(name))
	if err != nil {
		writeError(w, r, err)
		return nil, r, false
	}
	return sess, r.WithContext(log.ContextWithSession(r.Context(), sess.Name())), true
}

func (s *Server) handleSendText(w http.ResponseWriter, r *http.Request) {
	var req model.TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, r, ok := s.liveSession(w, r, req.Session)
	if !ok {
		return
	}
	msg, err := sess.SendText(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var req model.TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, r, ok := s.liveSession(w, r, req.Session)
	if !ok {
		return
	}
	msg, err := sess.Reply(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleSendFile(kind model.MediaKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req model.FileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sess, r, ok := s.liveSession(w, r, req.Session)
		if !ok {
			return
		}
		msg, err := sess.SendFile(r.Context(), kind, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleSendSeen(w http.ResponseWriter, r *http.Request) {
	var req model.SeenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, r, ok := s.liveSession(w, r, req.Session)
	if !ok {
		return
	}
	if err := sess.SendSeen(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
