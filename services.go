package feedcache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/marker"
	"github.com/Borislavv/go-feed-cache/internal/service/media"
	"github.com/Borislavv/go-feed-cache/internal/service/notifications"
	"github.com/Borislavv/go-feed-cache/internal/service/posts"
	"github.com/Borislavv/go-feed-cache/internal/service/profiles"
	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/Borislavv/go-feed-cache/internal/storage/sqlite"
)

// Store is everything the services read and write.
type Store interface {
	storage.PostStore
	storage.ProfileStore
	storage.NotificationStore
}

// Services are the cache consumers: every read goes through a cache, every write invalidates one.
type Services struct {
	Media         *media.Service
	Posts         *posts.Service
	Profiles      *profiles.Service
	Notifications *notifications.Service
}

// NewServices builds the cache consumers on store and signer and exposes their reads on the admin handler.
func (c *Caches) NewServices(store Store, signer media.Signer) *Services {
	m := media.New(c.urls, signer, c.cfg.Storage, c.cfg.SignedURL.DefaultExpiry(), c.logger)
	p := profiles.New(c.profiles, store, m, c.clock, c.logger)
	c.services = &Services{
		Media:         m,
		Profiles:      p,
		Posts:         posts.New(c.cfg.Feed, c.feeds, store, p, m, c.clock, c.logger, c.metrics),
		Notifications: notifications.New(c.profiles, store, c.clock, c.logger),
	}
	return c.services
}

// OpenStore opens the SQLite database holding posts, profiles and notifications.
func OpenStore(ctx context.Context, cfg *config.StorageCfg) (*sqlite.Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("storage is not configured")
	}
	return sqlite.Open(ctx, cfg.DatabasePath)
}

// NewSigner presigns against the configured endpoint, or joins paths onto the public origin when there is none.
func NewSigner(cfg *config.StorageCfg, logger *slog.Logger) media.Signer {
	if cfg.Signing() {
		return media.NewS3Signer(cfg)
	}
	origin := ""
	if cfg.Enabled() {
		origin = cfg.PublicURL
	}
	logger.Warn("object storage endpoint not configured, media URLs will not be signed", "public_url", origin)
	return media.PublicSigner{Origin: origin}
}

// OpenMarker connects the configured marker backend. A nil cfg returns a nil store.
func OpenMarker(ctx context.Context, cfg *config.MarkerCfg) (marker.Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Backend {
	case config.MarkerBackendSQLite:
		s, err := marker.OpenSQLite(ctx, cfg.SQLitePath, cfg.ID)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.MarkerBackendRedis:
		s, err := marker.DialRedis(ctx, cfg.RedisAddr, cfg.ID)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown marker backend %q", cfg.Backend)
	}
}
