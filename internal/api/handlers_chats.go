// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/chatgate/internal/domain/session/manager"
	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// pathSession resolves the {session} URL parameter.
func (s *Server) pathSession(w http.ResponseWriter, r *http.Request) (*manager.Session, *http.Request, bool) {
	return s.liveSession(w, r, chi.URLParam(r, "session"))
}

func (s *Server) handleGetChats(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.pathSession(w, r)
	if !ok {
		return
	}
	chats, err := sess.Chats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if chats == nil {
		chats = []model.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.pathSession(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteChat(r.Context(), chi.URLParam(r, "chatId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetChatMessages(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.pathSession(w, r)
	if !ok {
		return
	}

	q := model.MessagesQuery{Limit: model.DefaultMessagesLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeProblem(w, r, http.StatusUnprocessableEntity, CodeValidation, "limit must be a positive integer")
			return
		}
		q.Limit = limit
	}
	if v := r.URL.Query().Get("downloadMedia"); v != "" {
		download, err := strconv.ParseBool(v)
		if err != nil {
			writeProblem(w, r, http.StatusUnprocessableEntity, CodeValidation, "downloadMedia must be a boolean")
			return
		}
		q.DownloadMedia = download
	}

	msgs, err := sess.ChatMessages(r.Context(), chi.URLParam(r, "chatId"), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.pathSession(w, r)
	if !ok {
		return
	}
	if err := sess.ClearMessages(r.Context(), chi.URLParam(r, "chatId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.pathSession(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteMessage(r.Context(), chi.URLParam(r, "chatId"), chi.URLParam(r, "messageId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	var req model.EditMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, r, ok := s.pathSession(w, r)
	if !ok {
		return
	}
	msg, err := sess.EditMessage(r.Context(), chi.URLParam(r, "chatId"), chi.URLParam(r, "messageId"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
