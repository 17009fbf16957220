// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media persists message attachments for a bounded time and hands
// out public URLs for them.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/chatgate/internal/log"
	"github.com/ManuGH/chatgate/internal/metrics"
)

const fallbackExtension = ".bin"

// Storage is the sink the Manager writes attachments to.
type Storage interface {
	Save(ctx context.Context, id, mimetype string, data []byte) (string, error)
	Purge() error
}

// FileStorage writes attachments as <id><ext> into one folder and removes
// each file a fixed lifetime after it was written, whether or not it was
// ever served.
type FileStorage struct {
	dir      string
	baseURL  string
	lifetime time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewFileStorage(dir, baseURL string, lifetime time.Duration, logger zerolog.Logger) *FileStorage {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &FileStorage{
		dir:      dir,
		baseURL:  baseURL,
		lifetime: lifetime,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

func (s *FileStorage) Dir() string { return s.dir }

// Save writes data atomically and schedules its removal.
func (s *FileStorage) Save(_ context.Context, id, mt string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("media: refusing to save empty file")
	}
	if mt == "" {
		mt = mimetype.Detect(data).String()
	}
	name := sanitizeID(id) + Extension(mt)
	path := filepath.Join(s.dir, name)

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("media: write %s: %w", name, err)
	}
	s.scheduleRemoval(path)

	s.logger.Debug().
		Str(xglog.FieldEvent, "media.saved").
		Str(xglog.FieldPath, path).
		Str(xglog.FieldMimetype, mt).
		Int("bytes", len(data)).
		Msg("media file saved")
	return s.baseURL + url.PathEscape(name), nil
}

func (s *FileStorage) scheduleRemoval(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.timers[path]; ok {
		prev.Stop()
	}
	s.timers[path] = time.AfterFunc(s.lifetime, func() {
		s.mu.Lock()
		delete(s.timers, path)
		s.mu.Unlock()
		s.remove(path)
	})
}

func (s *FileStorage) remove(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		metrics.IncMediaRemoved()
		s.logger.Debug().Str(xglog.FieldEvent, "media.removed").Str(xglog.FieldPath, path).Msg("media file expired")
	case errors.Is(err, fs.ErrNotExist):
	default:
		s.logger.Warn().Err(err).Str(xglog.FieldPath, path).Msg("failed to remove expired media file")
	}
}

// Purge empties the folder, creating it when missing.
func (s *FileStorage) Purge() error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("media: create %s: %w", s.dir, err)
		}
		s.logger.Info().Str(xglog.FieldPath, s.dir).Msg("media folder created")
		return nil
	}
	if err != nil {
		return fmt.Errorf("media: read %s: %w", s.dir, err)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	s.logger.Info().Str(xglog.FieldPath, s.dir).Int("removed", len(entries)).Msg("media folder purged")
	return errors.Join(errs...)
}

// Close stops pending removals. Files left behind are purged on next start.
func (s *FileStorage) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for path, t := range s.timers {
		t.Stop()
		delete(s.timers, path)
	}
}

// Extension maps a mimetype to a file extension including the dot.
func Extension(mt string) string {
	base, _, err := mime.ParseMediaType(mt)
	if err != nil {
		base = mt
	}
	if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return fallbackExtension
}

func sanitizeID(id string) string {
	replaced := false
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '@':
			return r
		}
		replaced = true
		return '_'
	}, id)
	if clean == "" {
		return "media"
	}
	if replaced {
		// Keep ids that only differ in replaced characters apart.
		sum := sha256.Sum256([]byte(id))
		clean += "-" + hex.EncodeToString(sum[:4])
	}
	return clean
}
