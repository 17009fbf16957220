// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options select and parameterize a ConfigStore backend.
type Options struct {
	Backend   string
	Path      string
	Namespace string
	Redis     RedisConfig
}

// Open creates a ConfigStore for the configured backend. The caller must
// call Init before use.
func Open(opts Options) (ConfigStore, error) {
	if opts.Backend == "" {
		opts.Backend = BackendSQLite
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("store: namespace is required")
	}

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSqliteStore(opts.Path, opts.Namespace), nil
	case BackendBadger:
		return NewBadgerStore(opts.Path, opts.Namespace), nil
	case BackendRedis:
		return NewRedisStore(opts.Redis, opts.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", opts.Backend)
	}
}
