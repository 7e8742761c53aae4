// Package cache is the local persistent key-value store of one storefront instance: the
// cached site settings, per-user last routes and the checkout outbox live here.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-storefront/models"

	bolt "go.etcd.io/bbolt"
)

const (
	SiteSettingsKey = "siteSettings"

	settingsBucket  = "settings"
	lastRouteBucket = "lastRoute"
	OutboxBucket    = "outbox"
)

var ErrEmptyKey = errors.New("cache key must not be empty")

type Cache struct {
	db *bolt.DB
}

func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{settingsBucket, lastRouteBucket, OutboxBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache buckets: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns a copy of the value, or nil when the key is absent.
func (c *Cache) Get(bucket, key string) ([]byte, error) {
	var out []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (c *Cache) Put(bucket, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

func (c *Cache) Delete(bucket, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Each visits the bucket in key order. Values are only valid inside fn.
func (c *Cache) Each(bucket string, fn func(key string, value []byte) error) error {
	return c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// SiteSettings reads the cached settings blob. ok is false when the blob is missing or
// is not valid JSON.
func (c *Cache) SiteSettings() (s models.SiteSettings, ok bool) {
	raw, err := c.Get(settingsBucket, SiteSettingsKey)
	if err != nil || raw == nil {
		return s, false
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.SiteSettings{}, false
	}
	return s, true
}

func (c *Cache) PutSiteSettings(s models.SiteSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.Put(settingsBucket, SiteSettingsKey, raw)
}

// PutRawSiteSettings stores the blob unchecked, as another writer of the cache might.
func (c *Cache) PutRawSiteSettings(raw []byte) error {
	return c.Put(settingsBucket, SiteSettingsKey, raw)
}

func (c *Cache) LastRoute(uid string) string {
	raw, err := c.Get(lastRouteBucket, uid)
	if err != nil {
		return ""
	}
	return string(raw)
}

func (c *Cache) SetLastRoute(uid, route string) error {
	return c.Put(lastRouteBucket, uid, []byte(route))
}
