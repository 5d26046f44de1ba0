package cache

import (
	"log/slog"
	"time"

	"github.com/Borislavv/go-feed-cache/internal/cache/db"
	"github.com/Borislavv/go-feed-cache/internal/cache/db/model"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/benbjohnson/clock"
)

// Stats is a point-in-time view of a cache.
type Stats struct {
	Name           string `json:"name"`
	TotalEntries   int    `json:"total_entries"`
	ExpiredEntries int    `json:"expired_entries"`
	ActiveEntries  int    `json:"active_entries"`
	MaxSize        int    `json:"max_size"`
	TTLSeconds     int64  `json:"ttl_seconds"`
	Hits           int64  `json:"hits"`
	Misses         int64  `json:"misses"`
	Expirations    int64  `json:"expirations"`
	Evictions      int64  `json:"evictions"`
	Invalidations  int64  `json:"invalidations"`
}

// KV is a key and value pair for batch writes.
type KV[V any] struct {
	Key   string
	Value V
}

type Cfg struct {
	Name    string
	MaxSize int
	TTL     time.Duration
}

// Cache is a TTL cache with FIFO capacity eviction.
// It never performs I/O; callers compute values on a miss and Set them.
type Cache[V any] struct {
	cfg      Cfg
	db       *db.Map[V]
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	counters *counters
}

func New[V any](cfg Cfg, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Cache[V] {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache[V]{
		cfg:      cfg,
		db:       db.NewMap[V](cfg.MaxSize),
		clock:    clk,
		logger:   logger.With("cache", cfg.Name),
		metrics:  m,
		counters: newCounters(),
	}
}

func (c *Cache[V]) Name() string       { return c.cfg.Name }
func (c *Cache[V]) TTL() time.Duration { return c.cfg.TTL }
func (c *Cache[V]) Now() time.Time     { return c.clock.Now() }
func (c *Cache[V]) Len() int           { return c.db.Len() }

func (c *Cache[V]) Get(key string) (value V, ok bool) {
	entry, ok := c.GetEntry(key, nil)
	if !ok {
		return value, false
	}
	return entry.Value(), true
}

// GetEntry returns a live entry. When valid is given it runs outside the lock
// and a false result invalidates the entry (unless it was replaced meanwhile).
func (c *Cache[V]) GetEntry(key string, valid func(entry *model.Entry[V]) bool) (*model.Entry[V], bool) {
	entry, res := c.db.Get(key, c.clock.Now())
	switch res {
	case db.Miss:
		c.logger.Debug("cache miss", "key", key)
		c.miss()
		return nil, false
	case db.Expired:
		c.logger.Debug("cache entry expired", "key", key)
		c.expired(1)
		c.miss()
		return nil, false
	}

	if valid != nil && !valid(entry) {
		if c.db.RemoveIf(key, func(cur *model.Entry[V]) bool { return cur == entry }) {
			c.invalidated(1)
		}
		c.logger.Debug("cache entry stale", "key", key)
		c.miss()
		return nil, false
	}

	c.logger.Debug("cache hit", "key", key)
	c.counters.hits.Add(1)
	c.metrics.Hit(c.cfg.Name)
	return entry, true
}

// GetMany returns values of live keys only.
func (c *Cache[V]) GetMany(keys []string) map[string]V {
	found, expired := c.db.GetMany(keys, c.clock.Now())
	c.expired(expired)

	out := make(map[string]V, len(found))
	for key, entry := range found {
		out[key] = entry.Value()
	}

	hits := len(out)
	c.counters.hits.Add(int64(hits))
	c.counters.misses.Add(int64(len(keys) - hits))
	for i := 0; i < hits; i++ {
		c.metrics.Hit(c.cfg.Name)
	}
	for i := hits; i < len(keys); i++ {
		c.metrics.Miss(c.cfg.Name)
	}
	return out
}

// Set stores value with the configured TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.cfg.TTL)
}

func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	if victim := c.db.Set(model.NewEntry(key, value, c.clock.Now(), ttl)); victim != nil {
		c.logger.Debug("cache full, evicted oldest entry", "evicted", victim.Key())
		c.evicted(1)
	}
	c.logger.Debug("cached entry", "key", key, "ttl", ttl)
	c.metrics.SetEntries(c.cfg.Name, c.db.Len())
}

// SetMany stores items under one lock, all sharing the same timestamps.
func (c *Cache[V]) SetMany(items []KV[V], ttl time.Duration) {
	if len(items) == 0 {
		return
	}
	now := c.clock.Now()
	entries := make([]*model.Entry[V], 0, len(items))
	for _, item := range items {
		entries = append(entries, model.NewEntry(item.Key, item.Value, now, ttl))
	}
	if victims := c.db.SetMany(entries); len(victims) > 0 {
		c.evicted(len(victims))
	}
	c.metrics.SetEntries(c.cfg.Name, c.db.Len())
}

// Update applies fn to a live value in place. Expired entries are dropped and fn is not called.
func (c *Cache[V]) Update(key string, fn func(value V) V) (value V, ok bool) {
	entry, res := c.db.Update(key, c.clock.Now(), fn)
	switch res {
	case db.Hit:
		return entry.Value(), true
	case db.Expired:
		c.expired(1)
	}
	return value, false
}

func (c *Cache[V]) Remove(key string) bool {
	if c.db.Remove(key) {
		c.invalidated(1)
		return true
	}
	return false
}

// RemoveKeys removes every key matching fn.
func (c *Cache[V]) RemoveKeys(fn func(key string) bool) int {
	n := c.db.RemoveKeys(fn)
	c.invalidated(n)
	return n
}

func (c *Cache[V]) CountKeys(fn func(key string) bool) int {
	return c.db.CountKeys(fn)
}

func (c *Cache[V]) Clear() int {
	n := c.db.Clear()
	c.invalidated(n)
	return n
}

// CleanupExpired sweeps expired entries and returns how many were removed.
func (c *Cache[V]) CleanupExpired() int {
	n := c.db.CleanupExpired(c.clock.Now())
	c.expired(n)
	if n > 0 {
		c.logger.Debug("cleaned up expired entries", "removed", n)
	}
	return n
}

func (c *Cache[V]) Stats() Stats {
	total, expired := c.db.Count(c.clock.Now())
	hits, misses, expirations, evictions, invalidations := c.counters.snapshot()
	return Stats{
		Name:           c.cfg.Name,
		TotalEntries:   total,
		ExpiredEntries: expired,
		ActiveEntries:  total - expired,
		MaxSize:        c.cfg.MaxSize,
		TTLSeconds:     int64(c.cfg.TTL / time.Second),
		Hits:           hits,
		Misses:         misses,
		Expirations:    expirations,
		Evictions:      evictions,
		Invalidations:  invalidations,
	}
}

func (c *Cache[V]) miss() {
	c.counters.misses.Add(1)
	c.metrics.Miss(c.cfg.Name)
}

func (c *Cache[V]) expired(n int) {
	if n <= 0 {
		return
	}
	c.counters.expirations.Add(int64(n))
	c.metrics.Expired(c.cfg.Name, n)
	c.metrics.SetEntries(c.cfg.Name, c.db.Len())
}

func (c *Cache[V]) evicted(n int) {
	c.counters.evictions.Add(int64(n))
	c.metrics.Evicted(c.cfg.Name, n)
}

func (c *Cache[V]) invalidated(n int) {
	if n <= 0 {
		return
	}
	c.counters.invalidations.Add(int64(n))
	c.metrics.Invalidated(c.cfg.Name, n)
	c.metrics.SetEntries(c.cfg.Name, c.db.Len())
}
