// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

func backends(t *testing.T) map[string]func(namespace string) ConfigStore {
	t.Helper()
	dir := t.TempDir()
	mr := miniredis.RunT(t)
	memory := map[string]*MemoryStore{}

	return map[string]func(string) ConfigStore{
		"memory": func(ns string) ConfigStore {
			if s, ok := memory[ns]; ok {
				return s
			}
			memory[ns] = NewMemoryStore()
			return memory[ns]
		},
		"sqlite": func(ns string) ConfigStore { return NewSqliteStore(dir+"/sqlite", ns) },
		"badger": func(ns string) ConfigStore { return NewBadgerStore(dir+"/badger-"+ns, ns) },
		"redis": func(ns string) ConfigStore {
			return newRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ns)
		},
	}
}

func TestConfigStore_Contract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open("memory")
			require.NoError(t, s.Init(ctx))
			defer s.Close()

			got, err := s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, got)

			cfg := &model.SessionConfig{
				Webhooks: []model.WebhookConfig{{URL: "https://hooks.example/a", Events: []string{"message"}}},
				Metadata: map[string]string{"team": "ops"},
			}
			require.NoError(t, s.Set(ctx, "beta", cfg))
			require.NoError(t, s.Set(ctx, "alpha", nil))

			got, err = s.Get(ctx, "beta")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, cfg.Webhooks, got.Webhooks)
			assert.Equal(t, "ops", got.Metadata["team"])

			got, err = s.Get(ctx, "alpha")
			require.NoError(t, err)
			assert.NotNil(t, got, "nil config is stored as an empty config")

			names, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha", "beta"}, names)

			require.NoError(t, s.Delete(ctx, "beta"))
			require.NoError(t, s.Delete(ctx, "beta"))
			names, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha"}, names)

			assert.Error(t, s.Set(ctx, "", nil))
		})
	}
}

func TestSqliteStore_NamespacesAndPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	memoryNS := NewSqliteStore(dir, "memory")
	require.NoError(t, memoryNS.Init(ctx))
	bridgeNS := NewSqliteStore(dir, "bridge")
	require.NoError(t, bridgeNS.Init(ctx))

	require.NoError(t, memoryNS.Set(ctx, "default", nil))
	names, err := bridgeNS.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, memoryNS.Close())
	require.NoError(t, bridgeNS.Close())

	reopened := NewSqliteStore(dir, "memory")
	require.NoError(t, reopened.Init(ctx))
	defer reopened.Close()
	names, err = reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, names)
}

func TestOpen_Backends(t *testing.T) {
	for _, backend := range []string{"", BackendSQLite, BackendBadger, BackendRedis, BackendMemory} {
		s, err := Open(Options{Backend: backend, Path: t.TempDir(), Namespace: "memory"})
		require.NoError(t, err, backend)
		require.NotNil(t, s)
	}

	_, err := Open(Options{Backend: "bolt", Namespace: "memory"})
	assert.Error(t, err)

	_, err = Open(Options{Backend: BackendMemory})
	assert.Error(t, err)
}
