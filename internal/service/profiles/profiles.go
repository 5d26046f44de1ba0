// Package profiles serves user profiles through the profile cache.
package profiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Borislavv/go-feed-cache/internal/profile"
	"github.com/Borislavv/go-feed-cache/internal/service/media"
	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
)

const unknownUser = "Unknown User"

type Service struct {
	cache  *profile.Cache
	store  storage.ProfileStore
	media  *media.Service
	clock  clock.Clock
	logger *slog.Logger
}

func New(cache *profile.Cache, store storage.ProfileStore, media *media.Service, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{cache: cache, store: store, media: media, clock: clk, logger: logger.With("service", "profiles")}
}

// GetProfile reads through the cache. storage.ErrNotFound is returned for unknown users.
func (s *Service) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	if p, ok := s.cache.Get(userID); ok {
		return s.signAvatar(ctx, p), nil
	}
	rec, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	p := project(rec)
	s.cache.Set(userID, p)
	return s.signAvatar(ctx, p), nil
}

// GetProfiles returns profiles in request order, serving hits from the cache and loading the
// rest in one store call. Unknown ids are omitted.
func (s *Service) GetProfiles(ctx context.Context, userIDs []string) ([]model.Profile, error) {
	ids := dedupe(userIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	found := s.cache.GetBatch(ids)
	if len(found) < len(ids) {
		missing := make([]string, 0, len(ids)-len(found))
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}

		recs, err := s.store.GetProfiles(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("get profiles: %w", err)
		}
		fetched := make([]model.Profile, 0, len(recs))
		for _, rec := range recs {
			p := project(rec)
			found[p.ID] = p
			fetched = append(fetched, p)
		}
		s.cache.SetBatch(fetched)
		s.logger.Debug("profiles batch", "requested", len(ids), "fetched", len(fetched))
	}

	out := make([]model.Profile, 0, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			out = append(out, s.signAvatar(ctx, p))
		}
	}
	return out, nil
}

// Upsert writes the profile and drops the cached copy.
func (s *Service) Upsert(ctx context.Context, rec storage.ProfileRecord) error {
	now := s.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if err := s.store.UpsertProfile(ctx, rec); err != nil {
		return err
	}
	s.cache.Invalidate(rec.UserID)
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, u storage.ProfileUpdate) error {
	if err := s.store.UpdateProfile(ctx, userID, u, s.clock.Now()); err != nil {
		return fmt.Errorf("update profile %s: %w", userID, err)
	}
	s.cache.Invalidate(userID)
	return nil
}

// SetAvatar points the profile at a new avatar object and forgets URLs signed for the old one.
func (s *Service) SetAvatar(ctx context.Context, userID, storagePath string) error {
	return s.swapAvatar(ctx, userID, &storagePath)
}

func (s *Service) DeleteAvatar(ctx context.Context, userID string) error {
	return s.swapAvatar(ctx, userID, nil)
}

func (s *Service) swapAvatar(ctx context.Context, userID string, path *string) error {
	prev, err := s.store.SetAvatar(ctx, userID, path, s.clock.Now())
	if err != nil {
		return fmt.Errorf("set avatar %s: %w", userID, err)
	}
	s.cache.Invalidate(userID)
	if prev != nil {
		s.media.Invalidate(*prev)
	}
	return nil
}

// ConnectionAccepted stores the connection; both profiles change their connections count.
func (s *Service) ConnectionAccepted(ctx context.Context, userID, otherID string) error {
	if err := s.store.AcceptConnection(ctx, userID, otherID, s.clock.Now()); err != nil {
		return fmt.Errorf("accept connection: %w", err)
	}
	s.cache.Invalidate(userID)
	s.cache.Invalidate(otherID)
	return nil
}

// project builds the cached projection. AvatarURL stays empty; signAvatar fills it per response.
func project(rec storage.ProfileRecord) model.Profile {
	return model.Profile{
		ID:                rec.UserID,
		Name:              model.DisplayName(rec.FirstName, rec.LastName, orDefault(rec.Name, unknownUser)),
		FirstName:         rec.FirstName,
		LastName:          rec.LastName,
		Email:             rec.Email,
		Bio:               rec.Bio,
		Location:          rec.Location,
		AvatarStoragePath: rec.AvatarStoragePath,
		PodcastID:         rec.PodcastID,
		PodcastName:       rec.PodcastName,
		ConnectionsCount:  rec.ConnectionsCount,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
}

// signAvatar sets AvatarURL from the storage path through the signed-URL cache.
// p is a copy; the cached projection is never touched.
func (s *Service) signAvatar(ctx context.Context, p model.Profile) model.Profile {
	p.AvatarURL = nil
	if p.AvatarStoragePath == nil {
		return p
	}
	url, err := s.media.Sign(ctx, p.AvatarStoragePath, "")
	if err != nil {
		s.logger.Warn("avatar signing failed", "user_id", p.ID, "err", err)
		return p
	}
	if url != "" {
		p.AvatarURL = &url
	}
	return p
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
