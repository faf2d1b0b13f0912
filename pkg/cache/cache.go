package cache

import (
	"context"
	"sync"
	"time"
)

// Entry represents a cached value with expiration and its logical tags.
type Entry struct {
	Value     []byte
	Tags      []string
	ExpiresAt time.Time
}

// Memory is an in-memory TTL cache with tag-based invalidation. Reads tagged
// with a logical resource are dropped together when that resource mutates.
type Memory struct {
	mu    sync.RWMutex
	items map[string]*Entry
	// tag -> set of keys carrying it
	tags map[string]map[string]struct{}
}

// NewMemory creates an empty cache.
func NewMemory() *Memory {
	return &Memory{
		items: map[string]*Entry{},
		tags:  map[string]map[string]struct{}{},
	}
}

// Set stores a value under key with the given tags and TTL.
func (c *Memory) Set(_ context.Context, key string, value []byte, tags []string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
	c.items[key] = &Entry{
		Value:     value,
		Tags:      tags,
		ExpiresAt: time.Now().Add(ttl),
	}
	for _, tag := range tags {
		if c.tags[tag] == nil {
			c.tags[tag] = map[string]struct{}{}
		}
		c.tags[tag][key] = struct{}{}
	}
}

// Get returns the cached value if present and unexpired.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Value, true
}

// InvalidateTags drops every entry carrying any of the given tags.
func (c *Memory) InvalidateTags(_ context.Context, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for key := range c.tags[tag] {
			c.removeLocked(key)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Memory) removeLocked(key string) {
	entry, exists := c.items[key]
	if !exists {
		return
	}
	for _, tag := range entry.Tags {
		delete(c.tags[tag], key)
		if len(c.tags[tag]) == 0 {
			delete(c.tags, tag)
		}
	}
	delete(c.items, key)
}
