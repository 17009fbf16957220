// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/ManuGH/chatgate/internal/log"
)

// HeaderAPIKey carries the API key on every authenticated request.
const HeaderAPIKey = "X-Api-Key"

// apiKeyAuth rejects requests without the configured key. An empty key
// disables authentication.
func apiKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		want := []byte(key)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(HeaderAPIKey))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				log.FromContext(r.Context()).Warn().
					Str("event", "auth.rejected").
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Msg("missing or invalid api key")
				writeProblem(w, r, http.StatusUnauthorized, CodeUnauthorized, "missing or invalid "+HeaderAPIKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
