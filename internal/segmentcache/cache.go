// Package segmentcache implements the concurrent, byte-budgeted LRU of
// spec.md §4.3: url -> (bytes, headers, insertedAt, sizeBytes), bounded by
// both entry count and aggregate bytes, with TTL expiry and a periodic
// sweep.
//
// Grounded on the teacher's internal/proxy/cache.go inMemoryCache (a
// mutex-guarded map with lazy TTL eviction on Get) and its
// CacheStatsAggregator (internal/proxy/cache_stats.go) for the sweep-loop
// idiom, generalized here to true LRU: the teacher's cache never evicted on
// insert, which spec.md's byte/entry budget requires.
package segmentcache

import (
	"container/list"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one cached segment or key response, as named in spec.md §3.
// Callers must treat Bytes and Header as immutable after Set.
type Entry struct {
	StatusCode int
	Bytes      []byte
	Header     map[string]string
	InsertedAt time.Time
	SizeBytes  int
}

type node struct {
	key   string
	entry Entry
}

// Config bounds the cache. Production defaults are named in spec.md §4.3.
type Config struct {
	MaxEntries     int
	MaxMemoryBytes int64
	Expiry         time.Duration
}

// DefaultConfig returns the production defaults: {2000, 500 MiB, 2h}.
func DefaultConfig() Config {
	return Config{
		MaxEntries:     2000,
		MaxMemoryBytes: 500 * 1024 * 1024,
		Expiry:         2 * time.Hour,
	}
}

// Cache is a concurrent, byte-budgeted LRU. All operations are mutually
// atomic under a single mutex guarding the map, the byte counter, and the
// recency list together, per spec.md §5's shared-resource policy.
type Cache struct {
	mu           sync.Mutex
	ll           *list.List // front = most recently used, back = eviction candidate
	items        map[string]*list.Element
	currentBytes int64
	cfg          Config
	logger       *zap.Logger
	disabled     func() bool

	stopSweep chan struct{}
	sweepDone chan struct{}
}

// New creates a Cache. disabled, if non-nil, is polled on every Get, Set,
// Delete and Cleanup; when it returns true Get reports a miss and Set,
// Delete and Cleanup change nothing, implementing spec.md §4.5's
// DISABLE_CACHE switch without taking a snapshot at construction time.
// Clear and Stats do not consult the switch.
func New(cfg Config, logger *zap.Logger, disabled func() bool) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if disabled == nil {
		disabled = func() bool { return false }
	}
	return &Cache{
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		cfg:      cfg,
		logger:   logger,
		disabled: disabled,
	}
}

// Get returns the live entry for key, promoting it to most-recently-used.
// A miss is reported both when key is absent and when the stored entry has
// expired (in which case it is removed as a side effect).
func (c *Cache) Get(key string) (Entry, bool) {
	if c.disabled() {
		return Entry{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return Entry{}, false
	}
	n := el.Value.(*node)
	if c.expired(n.entry) {
		c.removeElement(el)
		return Entry{}, false
	}
	c.ll.MoveToFront(el)
	return n.entry, true
}

func (c *Cache) expired(e Entry) bool {
	return c.cfg.Expiry > 0 && time.Since(e.InsertedAt) > c.cfg.Expiry
}

// Set inserts or replaces key. Sizing, eviction order, and the degenerate
// "single entry bigger than the whole budget" case follow spec.md §4.3
// exactly: delete-then-reinsert on overwrite (to keep byte accounting exact
// and recency correct), evict by byte budget, then by entry count, then
// insert unconditionally.
func (c *Cache) Set(key string, statusCode int, bytes []byte, header map[string]string) {
	if c.disabled() {
		return
	}
	if statusCode == 0 {
		statusCode = 200
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}

	size := len(bytes)
	for c.currentBytes+int64(size) > c.cfg.MaxMemoryBytes && c.ll.Len() > 0 {
		c.evictOldest()
	}
	if c.cfg.MaxEntries > 0 && c.ll.Len() >= c.cfg.MaxEntries {
		c.evictOldest()
	}

	n := &node{key: key, entry: Entry{
		StatusCode: statusCode,
		Bytes:      bytes,
		Header:     header,
		InsertedAt: time.Now(),
		SizeBytes:  size,
	}}
	el := c.ll.PushFront(n)
	c.items[key] = el
	c.currentBytes += int64(size)
}

// evictOldest removes the least-recently-used entry. Ties among equally
// old entries resolve first-inserted-first-evicted because PushFront always
// places the newest entry at the front, so the back of the list is always
// the strict insertion order among untouched entries.
func (c *Cache) evictOldest() {
	back := c.ll.Back()
	if back == nil {
		return
	}
	c.removeElement(back)
}

func (c *Cache) removeElement(el *list.Element) {
	n := el.Value.(*node)
	c.ll.Remove(el)
	delete(c.items, n.key)
	c.currentBytes -= int64(n.entry.SizeBytes)
}

// Delete removes key if present, reporting whether it was.
func (c *Cache) Delete(key string) bool {
	if c.disabled() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Cleanup walks every entry and deletes those older than the configured
// expiry, returning the count removed. Called both by the periodic sweeper
// and opportunistically before prefetch fan-out (spec.md §4.5).
func (c *Cache) Cleanup() int {
	if c.disabled() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	var next *list.Element
	for el := c.ll.Front(); el != nil; el = next {
		next = el.Next()
		n := el.Value.(*node)
		if c.expired(n.entry) {
			c.removeElement(el)
			removed++
		}
	}
	return removed
}

// Clear drops every entry and resets accounting to zero.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.currentBytes = 0
}

// Stats is the read-only snapshot returned by GET /cache-stats (spec.md §4.3, §6).
type Stats struct {
	Entries      int     `json:"entries"`
	TotalMB      float64 `json:"totalMB"`
	AvgEntryKB   float64 `json:"avgEntryKB"`
	MaxEntries   int     `json:"maxEntries"`
	MaxMB        float64 `json:"maxMB"`
	CurrentMB    float64 `json:"currentMB"`
	ExpiryHours  float64 `json:"expiryHours"`
}

// Stats returns a read-only snapshot of the cache's current state.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.ll.Len()
	totalMB := float64(c.currentBytes) / (1024 * 1024)
	var avgKB float64
	if entries > 0 {
		avgKB = float64(c.currentBytes) / float64(entries) / 1024
	}
	return Stats{
		Entries:     entries,
		TotalMB:     totalMB,
		AvgEntryKB:  avgKB,
		MaxEntries:  c.cfg.MaxEntries,
		MaxMB:       float64(c.cfg.MaxMemoryBytes) / (1024 * 1024),
		CurrentMB:   totalMB,
		ExpiryHours: c.cfg.Expiry.Hours(),
	}
}

// StartSweeper launches the periodic sweep task named in spec.md §5: a
// timer, started at process initialization, that calls Cleanup every
// interval until StopSweeper is called.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.stopSweep = make(chan struct{})
	c.sweepDone = make(chan struct{})

	go func() {
		defer close(c.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopSweep:
				return
			case <-ticker.C:
				n := c.Cleanup()
				if n > 0 {
					c.logger.Debug("cache sweep removed expired entries", zap.Int("count", n))
				}
			}
		}
	}()
}

// StopSweeper stops the periodic sweep task started by StartSweeper, if any.
func (c *Cache) StopSweeper() {
	if c.stopSweep == nil {
		return
	}
	close(c.stopSweep)
	<-c.sweepDone
	c.stopSweep = nil
}
