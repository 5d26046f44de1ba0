package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/cache"
	dbmodel "github.com/Borislavv/go-feed-cache/internal/cache/db/model"
	"github.com/Borislavv/go-feed-cache/internal/marker"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
)

const Name = "feed"

// Stats extends the common cache stats with the marker state.
type Stats struct {
	cache.Stats
	EventBased      bool       `json:"event_based"`
	PollIntervalMs  int64      `json:"poll_interval_ms"`
	MarkerUpdatedAt *time.Time `json:"marker_updated_at,omitempty"`
	MarkerReads     int64      `json:"marker_reads"`
	MarkerFailures  int64      `json:"marker_failures"`
}

// Cache memoizes assembled feed pages. Entries are invalid once their TTL passes or
// once the shared version marker moves past the moment they were cached.
type Cache struct {
	cfg    config.FeedCfg
	cache  *cache.Cache[*model.Feed]
	watch  *watcher // nil when event-based invalidation is off
	logger *slog.Logger
}

// New builds the feed cache. store may be nil, which disables event-based invalidation
// regardless of cfg.
func New(
	cfg config.FeedCfg,
	markerCfg *config.MarkerCfg,
	store marker.Store,
	clk clock.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	c := &Cache{
		cfg:    cfg,
		cache:  cache.New[*model.Feed](cache.Cfg{Name: Name, MaxSize: cfg.MaxSize, TTL: cfg.TTL()}, clk, logger, m),
		logger: logger.With("cache", Name),
	}

	if cfg.IsEventBased() && store != nil {
		wcfg := watcherCfg{
			pollInterval:    cfg.PollInterval,
			timeout:         500 * time.Millisecond,
			breakerFailures: 5,
			breakerTimeout:  30 * time.Second,
		}
		if markerCfg.Enabled() {
			wcfg.timeout = markerCfg.Timeout
			wcfg.breakerFailures = markerCfg.BreakerFailures
			wcfg.breakerTimeout = markerCfg.BreakerTimeout
		}
		c.watch = newWatcher(wcfg, store, clk, c.logger, m)
	}

	c.logger.Info("feed cache initialized",
		"ttl", cfg.TTL(), "max_size", cfg.MaxSize, "event_based", c.watch != nil, "poll_interval", cfg.PollInterval)
	return c
}

// Get returns a copy of the cached page. URLs inside it may have expired and must be re-signed by the caller.
func (c *Cache) Get(ctx context.Context, userID string, limit int, cursor *string, offset *int) (*model.Feed, bool) {
	entry, ok := c.cache.GetEntry(dbmodel.FeedKey(userID, limit, cursor, offset), c.validator(ctx))
	if !ok {
		return nil, false
	}
	return entry.Value().Clone(), true
}

// Set stores a copy of feed for the exact pagination tuple.
func (c *Cache) Set(userID string, limit int, cursor *string, offset *int, feed *model.Feed) {
	c.cache.Set(dbmodel.FeedKey(userID, limit, cursor, offset), feed.Clone())
}

// Invalidate clears every feed entry in this process. userID does not narrow the scope:
// keys are hashes of the request tuple and cannot be matched back to a user.
func (c *Cache) Invalidate(userID string) int {
	n := c.cache.Clear()
	c.logger.Info("invalidated feed cache entries, all users affected", "requested_user_id", userID, "entries", n)
	return n
}

// InvalidateAll clears every feed entry in this process.
func (c *Cache) InvalidateAll() int {
	n := c.cache.Clear()
	c.logger.Info("invalidated entire feed cache", "entries", n)
	return n
}

// InvalidateViaDatabase bumps the shared version marker to now, making every
// process treat its current entries as stale once its poll window elapses.
// Without a marker store it clears the local cache instead.
func (c *Cache) InvalidateViaDatabase(ctx context.Context) error {
	if c.watch == nil {
		c.InvalidateAll()
		return nil
	}
	if err := c.watch.bump(ctx, c.cache.Now()); err != nil {
		c.logger.Warn("failed to bump feed version marker", "err", err)
		return fmt.Errorf("bump feed version marker: %w", err)
	}
	c.logger.Debug("bumped feed version marker")
	return nil
}

func (c *Cache) CleanupExpired() int { return c.cache.CleanupExpired() }
func (c *Cache) Name() string        { return Name }

func (c *Cache) Stats() Stats {
	s := Stats{
		Stats:          c.cache.Stats(),
		EventBased:     c.watch != nil,
		PollIntervalMs: c.cfg.PollInterval.Milliseconds(),
	}
	if c.watch != nil {
		if at, ok := c.watch.snapshot(); ok {
			s.MarkerUpdatedAt = &at
		}
		s.MarkerReads = c.watch.reads.Load()
		s.MarkerFailures = c.watch.failures.Load()
	}
	return s
}

// validator returns the event-based check, or nil when only TTL applies.
func (c *Cache) validator(ctx context.Context) func(entry *dbmodel.Entry[*model.Feed]) bool {
	if c.watch == nil {
		return nil
	}
	return func(entry *dbmodel.Entry[*model.Feed]) bool {
		r := c.watch.read(ctx)
		if !r.usable() {
			// marker never observed: the entry already passed the TTL check
			return true
		}
		return !r.at.After(entry.CachedAt())
	}
}
