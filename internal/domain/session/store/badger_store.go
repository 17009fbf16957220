// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/chatgate/internal/domain/session/model"
)

// BadgerStore keeps configs under keys "cfg:<engine>:<name>".
type BadgerStore struct {
	dir       string
	namespace string
	db        *badger.DB
}

func NewBadgerStore(dir, namespace string) *BadgerStore {
	return &BadgerStore{dir: filepath.Join(dir, "badger"), namespace: namespace}
}

func (s *BadgerStore) prefix() []byte { return []byte("cfg:" + s.namespace + ":") }

func (s *BadgerStore) key(name string) []byte { return append(s.prefix(), name...) }

func (s *BadgerStore) Init(context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := badger.Open(badger.DefaultOptions(s.dir).WithLogger(nil))
	if err != nil {
		return fmt.Errorf("store: open badger at %s: %w", s.dir, err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) Get(_ context.Context, name string) (*model.SessionConfig, error) {
	var buf []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(name))
		if err != nil {
			return err
		}
		buf, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %q: %w", name, err)
	}
	return decodeConfig(name, buf)
}

func (s *BadgerStore) Set(_ context.Context, name string, cfg *model.SessionConfig) error {
	if name == "" {
		return errEmptyName
	}
	buf, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(name), buf)
	})
}

func (s *BadgerStore) Delete(_ context.Context, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(name))
	})
}

func (s *BadgerStore) List(context.Context) ([]string, error) {
	prefix := s.prefix()
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return names, nil
}

func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
