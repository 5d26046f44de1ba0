package profile

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/cache"
	dbmodel "github.com/Borislavv/go-feed-cache/internal/cache/db/model"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
)

const Name = "profile"

// slot holds either a profile or an unread notification count; the key prefix says which.
type slot struct {
	profile model.Profile
	count   int
}

// Stats extends the common stats with a per-namespace breakdown.
type Stats struct {
	cache.Stats
	TTLMinutes                  int `json:"ttl_minutes"`
	NotificationCountTTLMinutes int `json:"notification_count_ttl_minutes"`
	ProfileEntries              int `json:"profile_entries"`
	NotificationCountEntries    int `json:"notification_count_entries"`
}

// Cache stores user profiles and unread notification counts in one bounded store.
// Both namespaces share MaxSize and FIFO eviction but expire independently.
type Cache struct {
	cfg    config.ProfileCfg
	cache  *cache.Cache[slot]
	logger *slog.Logger
}

func New(cfg config.ProfileCfg, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Cache {
	c := &Cache{
		cfg:    cfg,
		cache:  cache.New[slot](cache.Cfg{Name: Name, MaxSize: cfg.MaxSize, TTL: cfg.TTL()}, clk, logger, m),
		logger: logger.With("cache", Name),
	}
	c.logger.Info("user profile cache initialized",
		"ttl", cfg.TTL(), "notification_count_ttl", cfg.NotificationCountTTL(), "max_size", cfg.MaxSize)
	return c
}

func (c *Cache) Get(userID string) (model.Profile, bool) {
	s, ok := c.cache.Get(dbmodel.ProfileKey(userID))
	return s.profile, ok
}

func (c *Cache) Set(userID string, p model.Profile) {
	c.cache.Set(dbmodel.ProfileKey(userID), slot{profile: p})
}

// GetBatch returns cached profiles keyed by user id. Missing and expired ids are omitted.
func (c *Cache) GetBatch(userIDs []string) map[string]model.Profile {
	if len(userIDs) == 0 {
		return map[string]model.Profile{}
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = dbmodel.ProfileKey(id)
	}

	found := c.cache.GetMany(keys)
	out := make(map[string]model.Profile, len(found))
	for key, s := range found {
		out[strings.TrimPrefix(key, dbmodel.ProfilePrefix)] = s.profile
	}
	c.logger.Debug("profile batch lookup", "requested", len(userIDs), "found", len(out))
	return out
}

// SetBatch caches every profile carrying an id and returns how many were stored.
func (c *Cache) SetBatch(profiles []model.Profile) int {
	items := make([]cache.KV[slot], 0, len(profiles))
	for _, p := range profiles {
		if p.ID == "" {
			c.logger.Warn("profile missing user id, skipping cache")
			continue
		}
		items = append(items, cache.KV[slot]{Key: dbmodel.ProfileKey(p.ID), Value: slot{profile: p}})
	}
	c.cache.SetMany(items, c.cfg.TTL())
	c.logger.Debug("cached profiles in batch", "cached", len(items))
	return len(items)
}

func (c *Cache) Invalidate(userID string) bool {
	ok := c.cache.Remove(dbmodel.ProfileKey(userID))
	if ok {
		c.logger.Debug("invalidated profile", "user_id", userID)
	}
	return ok
}

// InvalidateAll drops both namespaces. It is a last resort after a bulk data change.
func (c *Cache) InvalidateAll() int {
	n := c.cache.Clear()
	c.logger.Warn("invalidated entire user profile cache", "entries", n)
	return n
}

func (c *Cache) GetNotificationCount(userID string) (int, bool) {
	s, ok := c.cache.Get(dbmodel.NotificationCountKey(userID))
	return s.count, ok
}

// SetNotificationCount caches count for ttl, or for the configured count TTL when ttl <= 0.
func (c *Cache) SetNotificationCount(userID string, count int, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.NotificationCountTTL()
	}
	c.cache.SetTTL(dbmodel.NotificationCountKey(userID), slot{count: max(count, 0)}, ttl)
}

// IncrementNotificationCount bumps a live cached count. Absent or expired counts are left for the next read to reload.
func (c *Cache) IncrementNotificationCount(userID string) (int, bool) {
	s, ok := c.cache.Update(dbmodel.NotificationCountKey(userID), func(s slot) slot {
		s.count++
		return s
	})
	if ok {
		c.logger.Debug("incremented notification count", "user_id", userID, "count", s.count)
	}
	return s.count, ok
}

// DecrementNotificationCount lowers a live cached count, never below zero.
func (c *Cache) DecrementNotificationCount(userID string) (int, bool) {
	s, ok := c.cache.Update(dbmodel.NotificationCountKey(userID), func(s slot) slot {
		s.count = max(s.count-1, 0)
		return s
	})
	if ok {
		c.logger.Debug("decremented notification count", "user_id", userID, "count", s.count)
	}
	return s.count, ok
}

func (c *Cache) InvalidateNotificationCount(userID string) bool {
	return c.cache.Remove(dbmodel.NotificationCountKey(userID))
}

func (c *Cache) CleanupExpired() int { return c.cache.CleanupExpired() }
func (c *Cache) Name() string        { return Name }

func (c *Cache) Stats() Stats {
	s := Stats{
		Stats:                       c.cache.Stats(),
		TTLMinutes:                  c.cfg.TTLMinutes,
		NotificationCountTTLMinutes: c.cfg.NotificationCountTTLMinutes,
	}
	s.ProfileEntries, s.NotificationCountEntries = c.namespaceCounts()
	return s
}

func (c *Cache) namespaceCounts() (profiles, counts int) {
	profiles = c.cache.CountKeys(func(key string) bool { return strings.HasPrefix(key, dbmodel.ProfilePrefix) })
	counts = c.cache.CountKeys(func(key string) bool { return strings.HasPrefix(key, dbmodel.NotificationCountPrefix) })
	return profiles, counts
}
