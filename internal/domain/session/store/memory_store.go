// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// MemoryStore keeps configs for the lifetime of the process only.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string][]byte)}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

func (s *MemoryStore) Get(_ context.Context, name string) (*model.SessionConfig, error) {
	s.mu.RLock()
	buf, ok := s.configs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeConfig(name, buf)
}

func (s *MemoryStore) Set(_ context.Context, name string, cfg *model.SessionConfig) error {
	if name == "" {
		return errEmptyName
	}
	buf, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.configs[name] = buf
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	delete(s.configs, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.configs))
	for name := range s.configs {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Close() error { return nil }
