package posts

import (
	"context"
	"fmt"

	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/google/uuid"
)

type NewPost struct {
	Content           string
	PostType          string
	PodcastEpisodeURL *string
	CategoryID        *string
	Media             []storage.MediaRecord
}

func (s *Service) CreatePost(ctx context.Context, userID string, in NewPost) (string, error) {
	now := s.clock.Now()
	rec := storage.PostRecord{
		ID:                uuid.NewString(),
		UserID:            userID,
		Content:           in.Content,
		PostType:          in.PostType,
		PodcastEpisodeURL: in.PodcastEpisodeURL,
		CategoryID:        in.CategoryID,
		Media:             in.Media,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if rec.PostType == "" {
		rec.PostType = "text"
	}
	if err := s.store.CreatePost(ctx, rec); err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	s.invalidate(ctx, userID, "post_created")
	return rec.ID, nil
}

func (s *Service) UpdatePost(ctx context.Context, postID, userID, content string) error {
	if err := s.store.UpdatePostContent(ctx, postID, userID, content, s.clock.Now()); err != nil {
		return fmt.Errorf("update post %s: %w", postID, err)
	}
	s.invalidate(ctx, userID, "post_updated")
	return nil
}

// DeletePost soft-deletes the post and forgets URLs signed for its media.
func (s *Service) DeletePost(ctx context.Context, postID, userID string) error {
	paths, err := s.store.DeletePost(ctx, postID, userID, s.clock.Now())
	if err != nil {
		return fmt.Errorf("delete post %s: %w", postID, err)
	}
	for _, p := range paths {
		s.media.Invalidate(p)
	}
	s.invalidate(ctx, userID, "post_deleted")
	return nil
}

func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked, err := s.store.ToggleLike(ctx, postID, userID, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("toggle like %s: %w", postID, err)
	}
	s.invalidate(ctx, userID, "post_liked")
	return liked, nil
}

func (s *Service) ToggleSave(ctx context.Context, postID, userID string) (bool, error) {
	saved, err := s.store.ToggleSave(ctx, postID, userID, s.clock.Now())
	if err != nil {
		return false, fmt.Errorf("toggle save %s: %w", postID, err)
	}
	s.invalidate(ctx, userID, "post_saved")
	return saved, nil
}

func (s *Service) AddComment(ctx context.Context, postID, userID, content string) (string, error) {
	c := storage.CommentRecord{
		ID:        uuid.NewString(),
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return "", fmt.Errorf("add comment on %s: %w", postID, err)
	}
	s.invalidate(ctx, userID, "comment_added")
	return c.ID, nil
}

func (s *Service) DeleteComment(ctx context.Context, commentID, userID string) error {
	if err := s.store.DeleteComment(ctx, commentID, userID, s.clock.Now()); err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	s.invalidate(ctx, userID, "comment_deleted")
	return nil
}

// invalidate bumps the shared marker. If that fails the mutation still stands, so at least
// this process drops its pages; other processes converge within the feed TTL.
func (s *Service) invalidate(ctx context.Context, userID, reason string) {
	if err := s.feeds.InvalidateViaDatabase(ctx); err != nil {
		s.logger.Warn("feed marker bump failed, clearing local feed cache", "reason", reason, "err", err)
		s.feeds.Invalidate(userID)
		return
	}
	s.logger.Debug("feed invalidated", "reason", reason)
}
