package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const assetPrefix = "asset:"

// AssetCache keeps downloaded map assets and legend feeds on disk, keyed by
// their URL.
type AssetCache struct {
	db *badger.DB
}

// OpenAssetCache opens the cache at path. An empty path keeps everything in
// memory.
func OpenAssetCache(path string) (*AssetCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &AssetCache{db: db}, nil
}

func (c *AssetCache) Close() error {
	return c.db.Close()
}

// Get returns the cached body for key and whether it was present.
func (c *AssetCache) Get(key string) ([]byte, bool, error) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(assetPrefix + key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Put stores data under key. A zero ttl never expires.
func (c *AssetCache) Put(key string, data []byte, ttl time.Duration) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(assetPrefix+key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (c *AssetCache) Delete(key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(assetPrefix + key))
	})
}

// Keys lists every cached key.
func (c *AssetCache) Keys() ([]string, error) {
	var keys []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(assetPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), assetPrefix))
		}
		return nil
	})
	return keys, err
}
