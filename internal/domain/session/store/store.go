// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store persists per-session configuration so sessions survive
// process restarts. Entries are namespaced by engine.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// ConfigStore is a durable name -> config mapping. Get returns (nil, nil)
// for a name that was never stored or has been deleted.
type ConfigStore interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, name string) (*model.SessionConfig, error)
	Set(ctx context.Context, name string, cfg *model.SessionConfig) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

var errEmptyName = errors.New("store: session name must not be empty")

func encodeConfig(cfg *model.SessionConfig) ([]byte, error) {
	if cfg == nil {
		cfg = &model.SessionConfig{}
	}
	buf, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: encode config: %w", err)
	}
	return buf, nil
}

func decodeConfig(name string, buf []byte) (*model.SessionConfig, error) {
	var cfg model.SessionConfig
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("store: decode config for %q: %w", name, err)
	}
	return &cfg, nil
}
