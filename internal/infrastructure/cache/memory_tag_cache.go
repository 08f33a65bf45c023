package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
	tags      []string
}

// InMemoryTagCache is a process-local TagCache. Expired entries are dropped
// lazily on read.
type InMemoryTagCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
	now     func() time.Time
}

// NewInMemoryTagCache creates an empty cache
func NewInMemoryTagCache() *InMemoryTagCache {
	return &InMemoryTagCache{
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// Get decodes the value stored at key into dest
func (c *InMemoryTagCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		c.deleteLocked(key)
		c.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set stores value at key. A zero ttl never expires.
func (c *InMemoryTagCache) Set(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}

	e := memoryEntry{data: data, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteLocked(key)
	c.entries[key] = e
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

// InvalidateTags drops every entry carrying any of tags
func (c *InMemoryTagCache) InvalidateTags(ctx context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for key := range c.tags[tag] {
			c.deleteLocked(key)
		}
		delete(c.tags, tag)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryTagCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryTagCache) deleteLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, tag := range e.tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

var _ TagCache = (*InMemoryTagCache)(nil)
