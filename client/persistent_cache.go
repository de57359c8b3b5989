package client

import (
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/corvid-tools/ytgrab/internal/cache"
)

// decipherCacheBucket is the only bucket a persistent cache file uses: one
// flat namespace of "scope\x1fkey" -> deciphered value entries, mirroring
// decipher.Engine's in-memory cache.ScopedKey shape.
var decipherCacheBucket = []byte("decipher_cache")

const scopedKeySep = "\x1f"

// persistentCache durably backs the in-process decipher result cache
// across runs, so a player version's n/signature transform doesn't need
// re-solving every process start. It is optional: Client works fine with
// no persistent cache, it just re-derives transforms from scratch.
type persistentCache struct {
	db *bolt.DB
}

// openPersistentCache opens (creating if absent) a bbolt file at path and
// ensures the decipher cache bucket exists.
func openPersistentCache(path string) (*persistentCache, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(decipherCacheBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &persistentCache{db: db}, nil
}

// warm loads every persisted entry into store, skipping keys store already
// holds (Store.Add is store-once, so a warm after first use is a no-op).
func (p *persistentCache) warm(store *cache.Store[cache.ScopedKey]) error {
	return p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(decipherCacheBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			scope, key, ok := splitScopedKey(string(k))
			if !ok {
				return nil
			}
			store.Add(cache.ScopedKey{Scope: scope, Key: key}, string(v))
			return nil
		})
	})
}

// flush persists every entry currently in store, overwriting any existing
// value for the same key (a rotated player version would otherwise pin a
// stale transform forever).
func (p *persistentCache) flush(store *cache.Store[cache.ScopedKey]) error {
	snapshot := store.Snapshot()
	return p.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(decipherCacheBucket)
		if b == nil {
			return nil
		}
		for k, v := range snapshot {
			if err := b.Put([]byte(joinScopedKey(k.Scope, k.Key)), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *persistentCache) Close() error {
	return p.db.Close()
}

func joinScopedKey(scope, key string) string {
	return scope + scopedKeySep + key
}

func splitScopedKey(raw string) (scope, key string, ok bool) {
	parts := strings.SplitN(raw, scopedKeySep, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
