package storage

import (
	"errors"
	"fmt"

	log "github.com/abcfe/hive-wallet/common/logger"
	"github.com/abcfe/hive-wallet/config"
	"github.com/syndtr/goleveldb/leveldb"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// KV is string-keyed durable storage namespaced by a prefix.
// Get reports ok=false for a missing key.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

type DB struct {
	db     *leveldb.DB
	prefix string
}

func InitDB(cfg *config.Config) (*DB, error) {
	db, err := leveldb.OpenFile(cfg.Storage.Path, nil)
	if err != nil {
		log.Error("Failed to open db: ", err)
		return nil, err
	}

	log.Info("Successfully opened db: ", cfg.Storage.Path)
	return &DB{db: db, prefix: cfg.Storage.Prefix}, nil
}

// NewMemory returns a LevelDB backed by memory storage.
func NewMemory(prefix string) (*DB, error) {
	db, err := leveldb.Open(lstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory db: %w", err)
	}
	return &DB{db: db, prefix: prefix}, nil
}

func (d *DB) key(k string) []byte {
	return []byte(d.prefix + k)
}

func (d *DB) Get(key string) (string, bool, error) {
	v, err := d.db.Get(d.key(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return string(v), true, nil
}

func (d *DB) Set(key, value string) error {
	if err := d.db.Put(d.key(key), []byte(value), nil); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (d *DB) Remove(key string) error {
	if err := d.db.Delete(d.key(key), nil); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
