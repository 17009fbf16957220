// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strings"

	"github.com/ManuGH/chatgate/internal/log"
)

// filesHandler serves stored media. Directory listings are never exposed;
// http.Dir confines lookups to FilesDir.
func (s *Server) filesHandler() http.Handler {
	fs := http.StripPrefix("/api/files/", http.FileServer(http.Dir(s.cfg.FilesDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/api/files/")
		if name == "" || strings.HasSuffix(name, "/") || strings.Contains(name, "..") {
			log.FromContext(r.Context()).Warn().
				Str("event", "file_req.denied").
				Str("path", r.URL.Path).
				Msg("file request denied")
			writeProblem(w, r, http.StatusNotFound, CodeNotFound, "file not found")
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=60")
		fs.ServeHTTP(w, r)
	})
}
