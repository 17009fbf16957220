// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// Settings are the process-wide inputs to session construction. They can be
// swapped at runtime; sessions started afterwards see the new values.
type Settings struct {
	Engine    model.EngineID
	BridgeURL string

	// GlobalWebhook is appended to every session's own webhooks. Nil or an
	// empty URL disables it.
	GlobalWebhook *model.WebhookConfig

	ProxyServers  []string
	ProxyUsername string
	ProxyPassword string

	MediaMimetypes []string
}

// mergeWebhooks concatenates session hooks and the global hook, in that order.
func mergeWebhooks(session []model.WebhookConfig, global *model.WebhookConfig) []model.WebhookConfig {
	out := make([]model.WebhookConfig, 0, len(session)+1)
	for _, w := range session {
		out = append(out, w.Clone())
	}
	if global != nil && global.URL != "" {
		out = append(out, global.Clone())
	}
	return out
}

// resolveProxy prefers the session proxy; otherwise it spreads sessions over
// the global proxy list by the number of sessions already live.
func resolveProxy(cfg *model.SessionConfig, s *Settings, live int) *model.ProxyConfig {
	if cfg != nil && cfg.Proxy != nil {
		p := *cfg.Proxy
		return &p
	}
	if len(s.ProxyServers) == 0 {
		return nil
	}
	return &model.ProxyConfig{
		Server:   s.ProxyServers[live%len(s.ProxyServers)],
		Username: s.ProxyUsername,
		Password: s.ProxyPassword,
	}
}
