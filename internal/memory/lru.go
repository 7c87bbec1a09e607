// Copyright 2023 RisingWave Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"sync"
	"sync/atomic"

	"github.com/artorias1024/risingwave/pkg/timex"
)

type cacheEntry struct {
	value      any
	sizeBytes  int64
	accessedMs int64
}

// ManagedCache is a cache that consults the shared eviction watermark:
// entries last touched before the watermark time are stale and dropped.
// Many caches read the same watermark counter; none of them write it.
// It implements MemoryOwner, so the control loop can sample it and evict
// from it directly.
type ManagedCache struct {
	mu        sync.Mutex
	entries   map[string]*cacheEntry
	usedBytes int64
	watermark *atomic.Uint64
}

var _ MemoryOwner = (*ManagedCache)(nil)

func NewManagedCache(watermark *atomic.Uint64) *ManagedCache {
	return &ManagedCache{
		entries:   make(map[string]*cacheEntry),
		watermark: watermark,
	}
}

func (c *ManagedCache) Put(key string, value any, sizeBytes int64) {
	c.mu.Lock()
	if old, ok := c.entries[key]; ok {
		c.usedBytes -= old.sizeBytes
	}
	c.entries[key] = &cacheEntry{value: value, sizeBytes: sizeBytes, accessedMs: timex.GetNowInMilli()}
	c.usedBytes += sizeBytes
	c.mu.Unlock()
}

func (c *ManagedCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if uint64(e.accessedMs) < c.watermark.Load() {
		c.usedBytes -= e.sizeBytes
		delete(c.entries, key)
		return nil, false
	}
	e.accessedMs = timex.GetNowInMilli()
	return e.value, true
}

// MemoryUsageBytes reports the caller-declared size of all live entries.
func (c *ManagedCache) MemoryUsageBytes() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usedBytes, nil
}

// EvictOlderThan drops every entry older than the watermark time.
func (c *ManagedCache) EvictOlderThan(watermarkTimeMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if e.accessedMs < watermarkTimeMs {
			c.usedBytes -= e.sizeBytes
			delete(c.entries, key)
		}
	}
}

func (c *ManagedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
