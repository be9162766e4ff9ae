// Package statuscache holds provisional employee statuses between an
// optimistic local change and the durable store's confirmation.
package statuscache

import (
	"encoding/gob"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"staffplan-backend/internal/model"
)

// Entry is a provisional status. It is always written whole.
type Entry struct {
	Status    model.Status
	WrittenAt time.Time
}

func init() {
	gob.Register(Entry{})
}

// Cache is a write-through status cache keyed by (event, employee).
// Entries older than the TTL read as absent and are purged on that read.
type Cache struct {
	items *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache whose entries live for ttl. The background janitor
// runs every cleanupInterval; zero disables it.
func New(ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		items: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
		now:   time.Now,
	}
}

func key(eventID, employeeID string) string {
	return eventID + "/" + employeeID
}

// Put records a provisional status for the pair.
func (c *Cache) Put(eventID, employeeID string, status model.Status) {
	c.items.Set(key(eventID, employeeID), Entry{Status: status, WrittenAt: c.now()}, c.ttl)
}

// Get returns the provisional status for the pair, if one is still fresh.
func (c *Cache) Get(eventID, employeeID string) (model.Status, bool) {
	k := key(eventID, employeeID)
	v, found := c.items.Get(k)
	if !found {
		// go-cache leaves expired items in place until the janitor runs.
		c.items.Delete(k)
		return "", false
	}
	entry := v.(Entry)
	if c.now().Sub(entry.WrittenAt) >= c.ttl {
		c.items.Delete(k)
		return "", false
	}
	return entry.Status, true
}

// Clear drops the entry for the pair once the store has confirmed the write.
func (c *Cache) Clear(eventID, employeeID string) {
	c.items.Delete(key(eventID, employeeID))
}

// ClearEvent drops every entry for an event.
func (c *Cache) ClearEvent(eventID string) {
	prefix := eventID + "/"
	for k := range c.items.Items() {
		if strings.HasPrefix(k, prefix) {
			c.items.Delete(k)
		}
	}
}

// Entries returns the fresh provisional statuses for an event keyed by employee.
func (c *Cache) Entries(eventID string) map[string]model.Status {
	prefix := eventID + "/"
	out := make(map[string]model.Status)
	for k := range c.items.Items() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		employeeID := strings.TrimPrefix(k, prefix)
		if status, ok := c.Get(eventID, employeeID); ok {
			out[employeeID] = status
		}
	}
	return out
}

// Len reports the number of stored entries, including ones not yet purged.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Save writes a snapshot of the cache to path.
func (c *Cache) Save(path string) error {
	if err := c.items.SaveFile(path); err != nil {
		return fmt.Errorf("failed to save status cache to %s: %w", path, err)
	}
	return nil
}

// Load creates a cache and restores the snapshot at path if one exists.
// Restored entries keep their original write time, so stale ones stay absent.
func Load(path string, ttl, cleanupInterval time.Duration) (*Cache, error) {
	c := New(ttl, cleanupInterval)
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}
	if err := c.items.LoadFile(path); err != nil {
		return nil, fmt.Errorf("failed to load status cache from %s: %w", path, err)
	}
	return c, nil
}
