// Package admin exposes cache stats, invalidation and Prometheus metrics over HTTP.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Borislavv/go-feed-cache/internal/feed"
	"github.com/Borislavv/go-feed-cache/internal/profile"
	"github.com/Borislavv/go-feed-cache/internal/signedurl"
	"github.com/Borislavv/go-feed-cache/internal/sweeper"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Readers load through the caches on a miss, the same way application reads do.
type (
	FeedReader interface {
		GetFeed(ctx context.Context, userID string, limit int, cursor *string, offset *int) (*model.Feed, error)
	}
	ProfileReader interface {
		GetProfile(ctx context.Context, userID string) (model.Profile, error)
	}
	UnreadCounter interface {
		UnreadCount(ctx context.Context, userID string) (int, error)
	}
)

type Deps struct {
	Feed       *feed.Cache
	SignedURLs *signedurl.Cache
	Profiles   *profile.Cache
	Sweeper    sweeper.Sweeper // optional
	Gatherer   prometheus.Gatherer
	Logger     *slog.Logger

	// Optional read-through routes; registered only when set.
	FeedReader    FeedReader
	ProfileReader ProfileReader
	UnreadCounter UnreadCounter
}

func NewRouter(d Deps) http.Handler {
	h := &handler{deps: d, logger: d.Logger.With("component", "admin")}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", h.health)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Post("/cleanup", h.cleanup)

		r.Post("/feed/invalidate", h.invalidateFeedShared)
		r.Delete("/feed", h.invalidateFeedLocal)

		r.Delete("/profiles", h.invalidateProfiles)
		r.Delete("/profiles/{userID}", h.invalidateProfile)
		r.Delete("/notification-counts/{userID}", h.invalidateNotificationCount)

		r.Delete("/signed-urls", h.invalidateSignedURLs)

		if d.FeedReader != nil {
			r.Get("/feed/{userID}", h.readFeed)
		}
		if d.ProfileReader != nil {
			r.Get("/profiles/{userID}", h.readProfile)
		}
		if d.UnreadCounter != nil {
			r.Get("/notification-counts/{userID}", h.readUnreadCount)
		}
	})
	return r
}
