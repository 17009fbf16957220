// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ports

import (
	"context"
	"net/http"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/rs/zerolog"
)

// EventHandler receives everything an engine emits. Implementations must not
// block: engines call it from their read loops.
type EventHandler interface {
	// OnStatus reports a connection status transition.
	OnStatus(status model.Status)
	// OnEvent reports an engine event. Message events carry a *model.Message payload.
	OnEvent(event string, payload any)
}

// MediaProcessor is the engine-specific view of message attachments.
type MediaProcessor interface {
	HasMedia(msg *model.Message) bool
	MessageID(msg *model.Message) string
	Mimetype(msg *model.Message) string
	Filename(msg *model.Message) string
	// MediaBuffer returns the attachment bytes, or nil when none are available.
	MediaBuffer(ctx context.Context, msg *model.Message) ([]byte, error)
}

// Engine is the capability contract every chat-engine backend implements.
type Engine interface {
	MediaProcessor

	// Connect starts the engine connection. It returns once the connection is
	// initiated; later status changes arrive through h.
	Connect(ctx context.Context, h EventHandler) error
	// Disconnect closes the connection and releases engine resources.
	Disconnect(ctx context.Context) error

	Me(ctx context.Context) (*model.MeInfo, error)

	SendText(ctx context.Context, req model.TextRequest) (*model.Message, error)
	SendMedia(ctx context.Context, kind model.MediaKind, req model.FileRequest) (*model.Message, error)
	SendSeen(ctx context.Context, req model.SeenRequest) error

	Chats(ctx context.Context) ([]model.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	ChatMessages(ctx context.Context, chatID string, limit int) ([]*model.Message, error)
	ClearMessages(ctx context.Context, chatID string) error
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	EditMessage(ctx context.Context, chatID, messageID string, req model.EditMessageRequest) (*model.Message, error)
}

// LogoutEngine is implemented by engines that hold account credentials which
// must be revoked when a session logs out.
type LogoutEngine interface {
	Logout(ctx context.Context) error
}

// EngineOptions is what the Session Manager hands an engine constructor.
type EngineOptions struct {
	Name   string
	Config *model.SessionConfig
	Proxy  *model.ProxyConfig
	Logger zerolog.Logger

	// HTTPClient fetches remote files referenced by outgoing media.
	HTTPClient *http.Client

	// BridgeURL is the base URL of the external engine process (BRIDGE only).
	BridgeURL string
}

// EngineConstructor builds an engine for one session.
type EngineConstructor func(opts EngineOptions) (Engine, error)
