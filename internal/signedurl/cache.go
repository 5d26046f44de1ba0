package signedurl

import (
	"log/slog"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/cache"
	dbmodel "github.com/Borislavv/go-feed-cache/internal/cache/db/model"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/benbjohnson/clock"
)

const Name = "signed_url"

// Cache memoizes pre-signed object URLs per (storage path, requested expiry).
// An entry lives for min(expiry, configured TTL) so a cached URL is never served past its own validity.
type Cache struct {
	cfg    config.SignedURLCfg
	cache  *cache.Cache[string]
	logger *slog.Logger
}

func New(cfg config.SignedURLCfg, clk clock.Clock, logger *slog.Logger, m *metrics.Metrics) *Cache {
	c := &Cache{
		cfg:    cfg,
		cache:  cache.New[string](cache.Cfg{Name: Name, MaxSize: cfg.MaxSize, TTL: cfg.TTL()}, clk, logger, m),
		logger: logger.With("cache", Name),
	}
	c.logger.Info("signed url cache initialized", "ttl", cfg.TTL(), "max_size", cfg.MaxSize)
	return c
}

func (c *Cache) Get(path string, expiry time.Duration) (string, bool) {
	return c.cache.Get(dbmodel.SignedURLKey(path, seconds(expiry)))
}

func (c *Cache) Set(path, url string, expiry time.Duration) {
	c.cache.SetTTL(dbmodel.SignedURLKey(path, seconds(expiry)), url, c.effectiveTTL(expiry))
}

// Invalidate removes every expiry variant cached for path. An empty path clears the whole cache.
func (c *Cache) Invalidate(path string) int {
	if path == "" {
		return c.InvalidateAll()
	}
	n := c.cache.RemoveKeys(func(key string) bool {
		p, ok := dbmodel.SignedURLPath(key)
		return ok && p == path
	})
	c.logger.Debug("invalidated signed urls", "path", path, "entries", n)
	return n
}

func (c *Cache) InvalidateAll() int {
	n := c.cache.Clear()
	c.logger.Info("invalidated entire signed url cache", "entries", n)
	return n
}

func (c *Cache) CleanupExpired() int { return c.cache.CleanupExpired() }
func (c *Cache) Stats() cache.Stats  { return c.cache.Stats() }
func (c *Cache) Name() string        { return Name }

// effectiveTTL clamps the cache lifetime to the URL's own validity.
func (c *Cache) effectiveTTL(expiry time.Duration) time.Duration {
	if ttl := c.cfg.TTL(); expiry > ttl {
		return ttl
	}
	return expiry
}

func seconds(d time.Duration) int { return int(d / time.Second) }
