// Package posts assembles feeds through the feed cache and invalidates it on every post mutation.
package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/feed"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/Borislavv/go-feed-cache/internal/service/media"
	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	unknownUser = "Unknown User"
)

// ErrInvalidLimit is returned for page sizes outside 1..MaxLimit. Limits are part of the
// feed cache key as given, so they are rejected rather than folded onto a valid size.
var ErrInvalidLimit = errors.New("feed limit out of range")

var tracer = otel.Tracer("github.com/Borislavv/go-feed-cache/internal/service/posts")

// ProfileSource resolves post authors.
type ProfileSource interface {
	GetProfiles(ctx context.Context, userIDs []string) ([]model.Profile, error)
}

type Service struct {
	feeds       *feed.Cache
	store       storage.PostStore
	profiles    ProfileSource
	media       *media.Service
	concurrency int
	clock       clock.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func New(
	cfg config.FeedCfg,
	feeds *feed.Cache,
	store storage.PostStore,
	profiles ProfileSource,
	media *media.Service,
	clk clock.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	if clk == nil {
		clk = clock.New()
	}
	concurrency := cfg.RegenerateConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Service{
		feeds:       feeds,
		store:       store,
		profiles:    profiles,
		media:       media,
		concurrency: concurrency,
		clock:       clk,
		logger:      logger.With("service", "posts"),
		metrics:     m,
	}
}

// GetFeed returns one page of the public feed as seen by userID. Pages are cached per
// (user, limit, cursor, offset); URLs are signed afresh on every call.
func (s *Service) GetFeed(ctx context.Context, userID string, limit int, cursor *string, offset *int) (*model.Feed, error) {
	ctx, span := tracer.Start(ctx, "posts.GetFeed", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	if limit < 1 || limit > MaxLimit {
		span.SetStatus(codes.Error, ErrInvalidLimit.Error())
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	if f, ok := s.feeds.Get(ctx, userID, limit, cursor, offset); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		s.sign(ctx, f)
		return f, nil
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	f, err := s.assemble(ctx, userID, limit, cursor, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.feeds.Set(userID, limit, cursor, offset, f)
	s.sign(ctx, f)
	return f, nil
}

func (s *Service) assemble(ctx context.Context, userID string, limit int, cursor *string, offset *int) (*model.Feed, error) {
	q := storage.FeedQuery{Limit: limit, Offset: offset}
	if cursor != nil && *cursor != "" {
		at, pinned, err := parseCursor(*cursor)
		if err != nil {
			return nil, err
		}
		q.Cursor, q.CursorPinned = &at, pinned
	}

	recs, err := s.store.ListFeed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}

	f := &model.Feed{Posts: make([]model.Post, 0, len(recs))}
	if len(recs) > 0 {
		postIDs := make([]string, len(recs))
		authorIDs := make([]string, 0, len(recs))
		for i, r := range recs {
			postIDs[i] = r.ID
			authorIDs = append(authorIDs, r.UserID)
		}

		liked, err := s.store.LikedPostIDs(ctx, userID, postIDs)
		if err != nil {
			return nil, fmt.Errorf("liked posts: %w", err)
		}
		saved, err := s.store.SavedPostIDs(ctx, userID, postIDs)
		if err != nil {
			return nil, fmt.Errorf("saved posts: %w", err)
		}

		authors := make(map[string]model.Profile, len(authorIDs))
		profiles, err := s.profiles.GetProfiles(ctx, authorIDs)
		if err != nil {
			// a feed without author details beats no feed
			s.logger.Error("failed to load post authors", "err", err)
		}
		for _, p := range profiles {
			authors[p.ID] = p
		}

		for _, r := range recs {
			f.Posts = append(f.Posts, toPost(r, authors[r.UserID], liked[r.ID], saved[r.ID]))
		}

		last := formatCursor(recs[len(recs)-1])
		f.NextCursor = &last
	}

	f.HasMore = len(recs) == limit
	if offset != nil && f.HasMore {
		next := *offset + limit
		f.NextOffset = &next
	}
	f.TotalReturned = len(f.Posts)
	return f, nil
}

// Cursors are the RFC3339Nano creation time of the last post, prefixed when it was pinned.
const pinnedCursorPrefix = "pinned:"

func formatCursor(r storage.PostRecord) string {
	at := r.CreatedAt.UTC().Format(time.RFC3339Nano)
	if r.IsPinned {
		return pinnedCursorPrefix + at
	}
	return at
}

func parseCursor(cursor string) (time.Time, bool, error) {
	raw, pinned := strings.CutPrefix(cursor, pinnedCursorPrefix)
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid cursor %q: %w", cursor, err)
	}
	return at, pinned, nil
}

func toPost(r storage.PostRecord, author model.Profile, liked, saved bool) model.Post {
	p := model.Post{
		ID:                r.ID,
		UserID:            r.UserID,
		Content:           r.Content,
		PostType:          r.PostType,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		IsPinned:          r.IsPinned,
		PodcastEpisodeURL: r.PodcastEpisodeURL,
		Engagement:        r.Engagement,
		IsLiked:           liked,
		IsSaved:           saved,
		Category:          r.Category,
		User: model.Author{
			ID:   r.UserID,
			Name: unknownUser,
		},
		MediaItems: make([]model.Media, len(r.Media)),
	}
	if author.ID != "" {
		p.User.Name = author.Name
		p.User.AvatarURL = author.AvatarURL
		p.User.AvatarStoragePath = author.AvatarStoragePath
		p.User.PodcastName = author.PodcastName
		p.User.PodcastID = author.PodcastID
		p.User.Bio = author.Bio
	}
	for i, m := range r.Media {
		p.MediaItems[i] = model.Media{
			ID:           m.ID,
			URL:          m.URL,
			StoragePath:  m.StoragePath,
			Type:         m.Type,
			ThumbnailURL: m.ThumbnailURL,
			Duration:     m.Duration,
			Width:        m.Width,
			Height:       m.Height,
		}
	}
	p.MediaURLs = mediaURLs(p.MediaItems)
	return p
}

func mediaURLs(items []model.Media) []string {
	urls := make([]string, 0, len(items))
	for _, m := range items {
		if m.URL != "" {
			urls = append(urls, m.URL)
		}
	}
	return urls
}
