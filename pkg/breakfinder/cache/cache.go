// Package cache keeps locate results keyed by the content of the episode and jingle
// files, so re-running an analysis skips decoding and correlation.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/OneOfOne/xxhash"
	badger "github.com/dgraph-io/badger/v3"
)

// Entry is one cached locate result.
type Entry struct {
	Timestamps     []float64 `json:"timestamps"`
	EpisodeSeconds float64   `json:"episode_seconds"`
	SampleRate     int       `json:"sample_rate"`
}

type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens a cache in dir, or an in-memory cache when dir is empty. Entries expire
// after ttl; zero keeps them forever.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// HashFile returns the xxhash64 of a file's bytes.
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New64()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return h.Sum64(), nil
}

// Key builds the cache key of locating a jingle in an episode with the given options.
func Key(episodeHash, jingleHash uint64, options string) []byte {
	return fmt.Appendf(nil, "locate/%016x/%016x/%016x", episodeHash, jingleHash, xxhash.ChecksumString64(options))
}

// Get returns the entry for key; ok is false on a miss.
func (c *Cache) Get(key []byte) (entry *Entry, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var e Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("decoding cache entry: %w", err)
			}
			entry, ok = &e, true
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return entry, ok, nil
}

func (c *Cache) Put(key []byte, entry *Entry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, val)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Purge drops every cached entry.
func (c *Cache) Purge() error {
	return c.db.DropAll()
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
