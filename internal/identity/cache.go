package identity

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Cache is the durable local profile cache. It only exists to skip the
// remote profile round trip for identities this node has already resolved;
// the remote store stays authoritative.
type Cache struct {
	db *pebble.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open profile cache: %w", err)
	}
	return &Cache{db: db}, nil
}

func usernameKey(userID string) []byte { return []byte("username_" + userID) }
func jobKey(userID string) []byte      { return []byte("job_" + userID) }

// Profile returns the cached display fields, reporting ok=false on any
// miss. A profile is only considered cached when both fields are present.
func (c *Cache) Profile(userID string) (username, job string, ok bool) {
	username, ok = c.get(usernameKey(userID))
	if !ok {
		return "", "", false
	}
	job, ok = c.get(jobKey(userID))
	if !ok {
		return "", "", false
	}
	return username, job, true
}

func (c *Cache) get(key []byte) (string, bool) {
	val, closer, err := c.db.Get(key)
	if err != nil {
		return "", false
	}
	out := string(val)
	closer.Close()
	return out, true
}

// SetProfile stores both display fields synchronously.
func (c *Cache) SetProfile(userID, username, job string) error {
	if err := c.db.Set(usernameKey(userID), []byte(username), pebble.Sync); err != nil {
		return fmt.Errorf("cache username: %w", err)
	}
	if err := c.db.Set(jobKey(userID), []byte(job), pebble.Sync); err != nil {
		return fmt.Errorf("cache job: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	err := c.db.Close()
	if err != nil && !errors.Is(err, pebble.ErrClosed) {
		return err
	}
	return nil
}
