package cache

import (
	"sync"
	"time"
)

// TTLCache is an in-memory SeenCache whose entries expire after a fixed
// window. Entries are removed by per-key timers; Stop drains any timers
// still pending.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*time.Timer
}

func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		entries: make(map[string]*time.Timer),
	}
}

func (c *TTLCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *TTLCache) MarkSeen(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timer, ok := c.entries[key]; ok {
		timer.Reset(c.ttl)
		return
	}
	c.entries[key] = time.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	})
}

func (c *TTLCache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, timer := range c.entries {
		timer.Stop()
		delete(c.entries, key)
	}
}
