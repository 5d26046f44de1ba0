// Package storage defines the persistence contracts the cache-consuming services depend on.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Borislavv/go-feed-cache/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// FeedQuery pages through the feed order (pinned first, then newest first). A cursor names the
// last post of the previous page by its creation time and whether it was pinned.
type FeedQuery struct {
	Limit        int
	Cursor       *time.Time // takes precedence over Offset
	CursorPinned bool
	Offset       *int
}

type PostRecord struct {
	ID                string
	UserID            string
	Content           string
	PostType          string
	PodcastEpisodeURL *string
	CategoryID        *string
	Category          *model.Category
	IsPinned          bool
	Engagement        model.Engagement
	Media             []MediaRecord
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MediaRecord struct {
	ID           string
	URL          string
	StoragePath  *string
	Type         string
	ThumbnailURL *string
	Duration     *float64
	Width        *int
	Height       *int
}

type CommentRecord struct {
	ID        string
	PostID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

type ProfileRecord struct {
	UserID            string
	Name              string
	FirstName         *string
	LastName          *string
	Email             *string
	Bio               *string
	Location          *string
	AvatarStoragePath *string
	PodcastID         *string
	PodcastName       *string
	ConnectionsCount  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Location  *string
}

type PostStore interface {
	ListFeed(ctx context.Context, q FeedQuery) ([]PostRecord, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	SavedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	CreatePost(ctx context.Context, p PostRecord) error
	UpdatePostContent(ctx context.Context, postID, userID, content string, at time.Time) error
	// DeletePost soft-deletes the post and returns the storage paths of its media.
	DeletePost(ctx context.Context, postID, userID string, at time.Time) ([]string, error)
	ToggleLike(ctx context.Context, postID, userID string, at time.Time) (liked bool, err error)
	ToggleSave(ctx context.Context, postID, userID string, at time.Time) (saved bool, err error)
	AddComment(ctx context.Context, c CommentRecord) error
	DeleteComment(ctx context.Context, commentID, userID string, at time.Time) error
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (ProfileRecord, error)
	GetProfiles(ctx context.Context, userIDs []string) ([]ProfileRecord, error)
	UpsertProfile(ctx context.Context, p ProfileRecord) error
	UpdateProfile(ctx context.Context, userID string, u ProfileUpdate, at time.Time) error
	// SetAvatar replaces the avatar path (nil removes it) and returns the previous one.
	SetAvatar(ctx context.Context, userID string, storagePath *string, at time.Time) (previous *string, err error)
	AcceptConnection(ctx context.Context, userID, otherID string, at time.Time) error
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	// MarkRead reports whether the notification switched from unread to read.
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	// DeleteNotification reports whether an unread notification was removed.
	DeleteNotification(ctx context.Context, userID, notificationID string) (wasUnread bool, err error)
}
