// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// newDialer applies the session proxy: socks5:// through x/net/proxy,
// anything else as an HTTP CONNECT proxy. A server without a scheme is
// treated as http.
func newDialer(p *model.ProxyConfig) (*websocket.Dialer, error) {
	d := &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	if p == nil || strings.TrimSpace(p.Server) == "" {
		return d, nil
	}

	raw := p.Server
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: proxy server %q: %v", model.ErrValidation, p.Server, err)
	}

	switch u.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if p.Username != "" {
			auth = &proxy.Auth{User: p.Username, Password: p.Password}
		}
		socks, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("%w: socks5 proxy: %v", model.ErrValidation, err)
		}
		cd, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks5 dialer does not support contexts")
		}
		d.Proxy = nil
		d.NetDialContext = cd.DialContext
	case "http", "https":
		if p.Username != "" {
			u.User = url.UserPassword(p.Username, p.Password)
		}
		d.Proxy = http.ProxyURL(u)
	default:
		return nil, fmt.Errorf("%w: unsupported proxy scheme %q", model.ErrValidation, u.Scheme)
	}
	return d, nil
}
