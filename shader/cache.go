// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCacheCapacity is the default maximum number of cached programs.
// Shader compilation through naga is the expensive step; a few hundred
// programs covers even plugin-heavy pipelines.
const DefaultCacheCapacity = 256

// programCache is an LRU cache of compiled programs keyed by source hash.
//
// A reload with unchanged defines and unchanged source is a cache hit and
// skips recompilation entirely, which keeps shader hot-reload cheap when
// only one file of many actually changed.
type programCache struct {
	mu       sync.Mutex
	entries  map[uint64]*list.Element
	lru      *list.List // front = most recent, values are *cacheEntry
	capacity int

	// Statistics (atomic for zero-allocation reads)
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry struct {
	hash    uint64
	program *Program
}

func newProgramCache(capacity int) *programCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &programCache{
		entries:  make(map[uint64]*list.Element),
		lru:      list.New(),
		capacity: capacity,
	}
}

// get retrieves a cached program, updating LRU order on hit.
func (c *programCache) get(hash uint64) (*Program, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[hash]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*cacheEntry).program, true
}

// put stores a program, evicting the oldest entries past capacity.
func (c *programCache) put(hash uint64, p *Program) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[hash]; ok {
		elem.Value.(*cacheEntry).program = p
		c.lru.MoveToFront(elem)
		return
	}

	for c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).hash)
		c.evictions.Add(1)
	}

	c.entries[hash] = c.lru.PushFront(&cacheEntry{hash: hash, program: p})
}

// clear drops all entries. Statistics are kept.
func (c *programCache) clear() {
	c.mu.Lock()
	c.entries = make(map[uint64]*list.Element)
	c.lru.Init()
	c.mu.Unlock()
}

// len returns the number of cached programs.
func (c *programCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CacheStats contains program cache statistics for monitoring.
type CacheStats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}

func (c *programCache) stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{
		Len:       c.len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}
