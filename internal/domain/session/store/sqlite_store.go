// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
	"github.com/ManuGH/chatgate/internal/persistence/sqlite"
)

const sqliteFileName = "sessions.sqlite"

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS session_configs (
		engine TEXT NOT NULL,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL,
		PRIMARY KEY (engine, name)
	)`,
}

// SqliteStore implements ConfigStore on a single SQLite file shared by all
// engines; rows are keyed by (engine, name).
type SqliteStore struct {
	dir       string
	namespace string
	DB        *sql.DB
}

func NewSqliteStore(dir, namespace string) *SqliteStore {
	return &SqliteStore{dir: dir, namespace: namespace}
}

func (s *SqliteStore) Init(ctx context.Context) error {
	if s.DB != nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("store: create %s: %w", s.dir, err)
	}
	db, err := sqlite.Open(filepath.Join(s.dir, sqliteFileName), sqlite.DefaultConfig())
	if err != nil {
		return err
	}
	if err := sqlite.Migrate(ctx, db, sqliteMigrations); err != nil {
		_ = db.Close()
		return fmt.Errorf("session store: migration failed: %w", err)
	}
	issues, err := sqlite.QuickCheck(ctx, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	if len(issues) > 0 {
		_ = db.Close()
		return fmt.Errorf("session store: integrity check failed: %v", issues)
	}
	s.DB = db
	return nil
}

func (s *SqliteStore) Get(ctx context.Context, name string) (*model.SessionConfig, error) {
	var raw string
	err := s.DB.QueryRowContext(ctx,
		"SELECT config_json FROM session_configs WHERE engine = ? AND name = ?",
		s.namespace, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %q: %w", name, err)
	}
	return decodeConfig(name, []byte(raw))
}

func (s *SqliteStore) Set(ctx context.Context, name string, cfg *model.SessionConfig) error {
	if name == "" {
		return errEmptyName
	}
	buf, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO session_configs (engine, name, config_json, updated_at_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(engine, name) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at_ms = excluded.updated_at_ms`,
		s.namespace, name, string(buf), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: set %q: %w", name, err)
	}
	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, name string) error {
	_, err := s.DB.ExecContext(ctx,
		"DELETE FROM session_configs WHERE engine = ? AND name = ?", s.namespace, name)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

func (s *SqliteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT name FROM session_configs WHERE engine = ? ORDER BY name", s.namespace)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SqliteStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
