package server

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of filtered responses kept in memory.
const DefaultCacheSize = 20

// ResponseCache is a least-recently-used cache of serialized responses keyed
// by bounding box.
type ResponseCache struct {
	lru *lru.Cache[string, []byte]
}

// NewResponseCache creates a cache holding at most capacity entries.
func NewResponseCache(capacity int) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	// New only fails for a non-positive size.
	c, err := lru.New[string, []byte](capacity)
	if err != nil {
		panic(err)
	}
	return &ResponseCache{lru: c}
}

// Get returns the cached response and marks it as recently used.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Put stores a response, evicting the least recently used entry when full.
func (c *ResponseCache) Put(key string, data []byte) {
	c.lru.Add(key, data)
}

// Len returns the number of cached entries.
func (c *ResponseCache) Len() int {
	return c.lru.Len()
}

// Clear drops every entry.
func (c *ResponseCache) Clear() {
	c.lru.Purge()
}
