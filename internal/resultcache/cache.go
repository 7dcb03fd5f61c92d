// Package resultcache provides a keyed LRU cache of tool outputs with a
// memory-pressure-adaptive TTL, grounded on internal/cache's dedupe cache
// but extended to hold values and support path-scoped invalidation.
package resultcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/vtcode/vtcode/pkg/models"
)

// PressureSource reports the adaptive TTL factor the Memory monitor (C11)
// derives from current RSS pressure: Normal 1.0, Warning 0.5, Critical 0.1.
type PressureSource interface {
	AdaptiveTTLFactor() float64
}

// staticFactor is a PressureSource that always reports 1.0, used when no
// monitor is wired (the cache degrades to a plain fixed-TTL LRU).
type staticFactor struct{}

func (staticFactor) AdaptiveTTLFactor() float64 { return 1.0 }

type entry struct {
	key       string
	value     *models.ToolOutput
	baseTTL   time.Duration
	insertedAt time.Time
	paths     []string
	elem      *list.Element
}

// Cache is a capacity-bounded LRU keyed on (tool name, stable hash of
// canonicalized args), storing dual-channel ToolOutput values with an
// effective TTL scaled by the current memory-pressure factor.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*entry
	order    *list.List // front = most recently used
	pressure PressureSource
}

// New creates a Cache with the given capacity (entries beyond it are
// evicted LRU-first) and an optional pressure source; nil keeps TTLs fixed.
func New(capacity int, pressure PressureSource) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	if pressure == nil {
		pressure = staticFactor{}
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*entry),
		order:    list.New(),
		pressure: pressure,
	}
}

// Key derives the cache key for a tool call: the tool name plus a stable
// hash of its canonicalized (key-sorted) JSON arguments.
func Key(toolName string, args json.RawMessage) string {
	return toolName + ":" + stableHash(args)
}

func stableHash(args json.RawMessage) string {
	canon := canonicalizeJSON(args)
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalizeJSON re-marshals arbitrary JSON with map keys sorted, so two
// arg payloads differing only in key order hash identically.
func canonicalizeJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(sortedValue(v))
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func sortedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		for i, item := range t {
			t[i] = sortedValue(item)
		}
		return t
	default:
		return v
	}
}

// Get returns the cached ToolOutput for key if present and not expired
// (after applying the current adaptive TTL factor), moving it to the front
// of the LRU order. Stale entries are discarded lazily on lookup.
func (c *Cache) Get(key string) (*models.ToolOutput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.baseTTL > 0 {
		factor := c.pressure.AdaptiveTTLFactor()
		effective := time.Duration(float64(e.baseTTL) * factor)
		if time.Now().After(e.insertedAt.Add(effective)) {
			c.removeLocked(e)
			return nil, false
		}
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Put inserts or replaces the entry for key with the given base TTL and the
// workspace-relative paths its value depends on (for invalidation). A zero
// ttl never expires under pressure factor 1.0 but is still evicted by LRU.
func (c *Cache) Put(key string, value *models.ToolOutput, ttl time.Duration, paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		c.removeLocked(existing)
	}
	e := &entry{
		key:        key,
		value:      value,
		baseTTL:    ttl,
		insertedAt: time.Now(),
		paths:      append([]string(nil), paths...),
	}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
	c.evictOverflowLocked()
}

// InvalidateForPath discards every entry whose recorded paths include path
// or a path path is a prefix of (so a write under a directory invalidates
// cached reads of files beneath it).
func (c *Cache) InvalidateForPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		for _, p := range e.paths {
			if p == path || strings.HasPrefix(path, p+"/") || strings.HasPrefix(p, path+"/") {
				c.removeLocked(e)
				break
			}
		}
	}
}

// Resize changes the capacity, evicting LRU entries immediately if the new
// capacity is smaller than the current size.
func (c *Cache) Resize(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if capacity <= 0 {
		capacity = 1
	}
	c.capacity = capacity
	c.evictOverflowLocked()
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}

func (c *Cache) evictOverflowLocked() {
	for len(c.entries) > c.capacity {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.removeLocked(back.Value.(*entry))
	}
}
