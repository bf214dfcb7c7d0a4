package marketdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	snapshotBucket = []byte("snapshots")
	latestKey      = []byte("latest")
)

// ErrNoCachedSnapshot is returned when the cache has never been written.
var ErrNoCachedSnapshot = errors.New("marketdata: no cached snapshot")

// Cache persists the last snapshot that passed the guard so a restart can
// quote before the first refresh completes.
type Cache struct {
	db *bbolt.DB
}

type cachedEntry struct {
	Source   string    `json:"source"`
	Digest   string    `json:"digest"`
	StoredAt time.Time `json:"storedAt"`
	Document Document  `json:"document"`
}

// OpenCache opens or creates the bbolt file at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot cache: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init snapshot cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Save stores the snapshot as the latest known-good copy.
func (c *Cache) Save(snap *Snapshot) error {
	if c == nil || c.db == nil {
		return nil
	}
	if snap == nil {
		return fmt.Errorf("snapshot required")
	}
	payload, err := json.Marshal(cachedEntry{
		Source:   snap.Source,
		Digest:   snap.Digest,
		StoredAt: time.Now().UTC(),
		Document: snap.Document,
	})
	if err != nil {
		return fmt.Errorf("encode cached snapshot: %w", err)
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put(latestKey, payload)
	})
}

// Load rebuilds the latest cached snapshot.
func (c *Cache) Load() (*Snapshot, error) {
	if c == nil || c.db == nil {
		return nil, ErrNoCachedSnapshot
	}
	var entry cachedEntry
	err := c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(snapshotBucket).Get(latestKey)
		if raw == nil {
			return ErrNoCachedSnapshot
		}
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return nil, err
	}
	snap, err := Build(entry.Document, entry.Source)
	if err != nil {
		return nil, fmt.Errorf("rebuild cached snapshot: %w", err)
	}
	if entry.Digest != "" && entry.Digest != snap.Digest {
		return nil, fmt.Errorf("cached snapshot digest mismatch")
	}
	return snap, nil
}

// Close releases the underlying file.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
