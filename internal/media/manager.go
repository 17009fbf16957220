// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/domain/session/ports"
	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/metrics"
	"github.com/ManuGH/chatgate/internal/telemetry"
)

const (
	outcomeSaved      = "saved"
	outcomeSkipped    = "skipped"
	outcomeEmpty      = "empty"
	outcomeFetchError = "fetch_error"
	outcomeSaveError  = "save_error"
)

var tracer = telemetry.Tracer("chatgate/media")

// Manager decides per message whether its attachment is downloaded and
// stored. Failures never propagate: the message is returned without media.
type Manager struct {
	storage   Storage
	mimetypes []string
	logger    zerolog.Logger
}

// NewManager returns a manager. An empty mimetypes list downloads everything;
// otherwise a mimetype must start with one of the entries.
func NewManager(storage Storage, mimetypes []string, logger zerolog.Logger) *Manager {
	return &Manager{
		storage:   storage,
		mimetypes: append([]string(nil), mimetypes...),
		logger:    logger,
	}
}

func (m *Manager) allowed(mt string) bool {
	if len(m.mimetypes) == 0 {
		return true
	}
	for _, prefix := range m.mimetypes {
		if strings.HasPrefix(mt, prefix) {
			return true
		}
	}
	return false
}

// Process returns msg with a media reference attached when applicable. The
// input message is not modified.
func (m *Manager) Process(ctx context.Context, session string, p ports.MediaProcessor, msg *model.Message) *model.Message {
	if msg == nil || !p.HasMedia(msg) {
		return msg
	}

	id := p.MessageID(msg)
	mt := p.Mimetype(msg)
	filename := p.Filename(msg)
	logger := m.logger.With().
		Str(xglog.FieldSession, session).
		Str(xglog.FieldMessageID, id).
		Str(xglog.FieldMimetype, mt).
		Logger()

	ctx, span := tracer.Start(ctx, "media.process")
	defer span.End()
	record := func(outcome string) {
		metrics.IncMedia(outcome)
		span.SetAttributes(telemetry.MediaAttributes(session, mt, outcome)...)
	}

	out := *msg
	if !m.allowed(mt) {
		record(outcomeSkipped)
		logger.Debug().Msg("mimetype not in allow-list, skipping download")
		out.Media = &model.Media{Mimetype: mt, Filename: filename, URL: nil}
		return &out
	}

	buf, err := p.MediaBuffer(ctx, msg)
	if err != nil {
		record(outcomeFetchError)
		logger.Warn().Err(err).Msg("failed to download media")
		return msg
	}
	if len(buf) == 0 {
		record(outcomeEmpty)
		logger.Debug().Msg("engine returned no media bytes")
		return msg
	}

	link, err := m.storage.Save(ctx, id, mt, buf)
	if err != nil {
		record(outcomeSaveError)
		logger.Error().Err(err).Msg("failed to save media")
		return msg
	}
	record(outcomeSaved)
	out.Media = &model.Media{Mimetype: mt, Filename: filename, URL: &link}
	return &out
}
