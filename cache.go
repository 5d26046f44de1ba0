// Package feedcache wires the feed, signed-URL and profile caches together with
// their sweeper, telemetry and admin surface.
package feedcache

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/admin"
	"github.com/Borislavv/go-feed-cache/internal/cache"
	"github.com/Borislavv/go-feed-cache/internal/feed"
	"github.com/Borislavv/go-feed-cache/internal/marker"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/Borislavv/go-feed-cache/internal/profile"
	"github.com/Borislavv/go-feed-cache/internal/signedurl"
	"github.com/Borislavv/go-feed-cache/internal/supervisor"
	"github.com/Borislavv/go-feed-cache/internal/sweeper"
	"github.com/Borislavv/go-feed-cache/internal/telemetry"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*options)

type options struct {
	clock    clock.Clock
	registry *prometheus.Registry
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clock = clk }
}

// WithRegistry registers the cache collectors on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// Stats is the combined snapshot served by the admin surface.
type Stats struct {
	Feed      feed.Stats    `json:"feed"`
	SignedURL cache.Stats   `json:"signed_url"`
	Profile   profile.Stats `json:"profile"`
}

type Caches struct {
	cfg      *config.Cache
	feeds    *feed.Cache
	urls     *signedurl.Cache
	profiles *profile.Cache

	sweeper   sweeper.Sweeper
	telemetry *telemetry.Logs
	services  *Services // set by NewServices
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	store     marker.Store
	clock     clock.Clock
	logger    *slog.Logger
}

// New builds every cache from cfg. store may be nil, in which case the feed cache
// falls back to TTL and local invalidation. Close releases the store.
func New(cfg *config.Cache, store marker.Store, logger *slog.Logger, opts ...Option) *Caches {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	m := metrics.New(o.registry)
	c := &Caches{
		cfg:      cfg,
		feeds:    feed.New(cfg.Feed, cfg.Marker, store, o.clock, logger, m),
		urls:     signedurl.New(cfg.SignedURL, o.clock, logger, m),
		profiles: profile.New(cfg.Profile, o.clock, logger, m),
		metrics:  m,
		registry: o.registry,
		store:    store,
		clock:    o.clock,
		logger:   logger,
	}
	c.sweeper = sweeper.New(cfg.Sweeper, o.clock, logger, m, c.feeds, c.urls, c.profiles)
	c.telemetry = telemetry.New(cfg.Telemetry, o.clock, logger, m, c.sweeper.SweeperMetrics,
		telemetry.Source{Name: feed.Name, Stats: func() cache.Stats { return c.feeds.Stats().Stats }},
		telemetry.Source{Name: signedurl.Name, Stats: c.urls.Stats},
		telemetry.Source{Name: profile.Name, Stats: func() cache.Stats { return c.profiles.Stats().Stats }},
	)
	return c
}

func (c *Caches) Feed() *feed.Cache            { return c.feeds }
func (c *Caches) SignedURLs() *signedurl.Cache { return c.urls }
func (c *Caches) Profiles() *profile.Cache     { return c.profiles }
func (c *Caches) Metrics() *metrics.Metrics    { return c.metrics }
func (c *Caches) Clock() clock.Clock           { return c.clock }

func (c *Caches) Stats() Stats {
	return Stats{Feed: c.feeds.Stats(), SignedURL: c.urls.Stats(), Profile: c.profiles.Stats()}
}

// CleanupExpired sweeps every cache once, whether or not the periodic sweeper is enabled.
func (c *Caches) CleanupExpired() int {
	return c.feeds.CleanupExpired() + c.urls.CleanupExpired() + c.profiles.CleanupExpired()
}

// InvalidateAll clears every cache in this process.
func (c *Caches) InvalidateAll() int {
	return c.feeds.InvalidateAll() + c.urls.InvalidateAll() + c.profiles.InvalidateAll()
}

// AdminHandler serves stats and invalidation. Once NewServices has run it also serves
// read-through feed, profile and unread-count routes.
func (c *Caches) AdminHandler() http.Handler {
	d := admin.Deps{
		Feed:       c.feeds,
		SignedURLs: c.urls,
		Profiles:   c.profiles,
		Sweeper:    c.sweeper,
		Gatherer:   c.registry,
		Logger:     c.logger,
	}
	if c.services != nil {
		d.FeedReader = c.services.Posts
		d.ProfileReader = c.services.Profiles
		d.UnreadCounter = c.services.Notifications
	}
	return admin.NewRouter(d)
}

// Register adds the sweeper, telemetry and, when configured, the admin server to tree.
func (c *Caches) Register(tree *supervisor.Tree) {
	tree.AddWorker(supervisor.Service{Name: "sweeper", Run: c.sweeper.Serve})
	tree.AddWorker(supervisor.Service{Name: "telemetry", Run: c.telemetry.Serve})

	if c.cfg.Admin.Enabled() {
		srv := &http.Server{Addr: c.cfg.Admin.Addr, Handler: c.AdminHandler()}
		tree.AddAPI(supervisor.NewHTTPService("admin", srv, c.cfg.Admin.ShutdownTimeout))
		c.logger.Info("admin server registered", "addr", c.cfg.Admin.Addr)
	}
}

// Serve runs the background workers under their own supervisor until ctx is canceled.
func (c *Caches) Serve(ctx context.Context) error {
	tree := supervisor.NewTree("feedcache", c.logger, shutdownTimeout(c.cfg))
	c.Register(tree)
	return tree.Serve(ctx)
}

func (c *Caches) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func shutdownTimeout(cfg *config.Cache) (d time.Duration) {
	if cfg.Admin.Enabled() {
		d = cfg.Admin.ShutdownTimeout
	}
	return d
}
