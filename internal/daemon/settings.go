// SPDX-License-Identifier: MIT

package daemon

import (
	"github.com/ManuGH/chatgate/internal/config"
	sessionmgr "github.com/ManuGH/chatgate/internal/domain/session/manager"
)

// SessionSettings projects the reloadable parts of cfg onto the session
// manager.
func SessionSettings(cfg config.AppConfig) sessionmgr.Settings {
	return sessionmgr.Settings{
		Engine:         cfg.EngineID(),
		BridgeURL:      cfg.Bridge.URL,
		GlobalWebhook:  cfg.GlobalWebhook(),
		ProxyServers:   append([]string(nil), cfg.Proxy.Servers...),
		ProxyUsername:  cfg.Proxy.Username,
		ProxyPassword:  cfg.Proxy.Password,
		MediaMimetypes: append([]string(nil), cfg.Files.Mimetypes...),
	}
}
