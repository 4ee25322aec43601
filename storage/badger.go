package storage

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"chat-sync/errors"
)

// BadgerProvider backs the Provider contract with a local BadgerDB, giving
// session snapshots durability across process restarts.
type BadgerProvider struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerProvider(db *badger.DB, log *slog.Logger) *BadgerProvider {
	return &BadgerProvider{db: db, log: log}
}

func (p *BadgerProvider) GetItem(key string) ([]byte, error) {
	var value []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s", errors.ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *BadgerProvider) SetItem(key string, value []byte) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (p *BadgerProvider) RemoveItem(key string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}
