// Package notifications keeps the cached unread counter in step with the notification store.
package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Borislavv/go-feed-cache/internal/profile"
	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

type Service struct {
	counts *profile.Cache
	store  storage.NotificationStore
	clock  clock.Clock
	logger *slog.Logger
}

func New(counts *profile.Cache, store storage.NotificationStore, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{counts: counts, store: store, clock: clk, logger: logger.With("service", "notifications")}
}

// Notify stores a new unread notification and bumps the cached counter if one is cached.
func (s *Service) Notify(ctx context.Context, userID, kind, message string) (model.Notification, error) {
	n := model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		CreatedAt: s.clock.Now(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return model.Notification{}, fmt.Errorf("notify %s: %w", userID, err)
	}
	s.counts.IncrementNotificationCount(userID)
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit)
}

// UnreadCount reads through the short-lived counter cache.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if n, ok := s.counts.GetNotificationCount(userID); ok {
		return n, nil
	}
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("unread count %s: %w", userID, err)
	}
	s.counts.SetNotificationCount(userID, n, 0)
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	changed, err := s.store.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return false, fmt.Errorf("mark read %s: %w", notificationID, err)
	}
	if changed {
		s.counts.DecrementNotificationCount(userID)
	}
	return changed, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read %s: %w", userID, err)
	}
	s.counts.SetNotificationCount(userID, 0, 0)
	return n, nil
}

// Delete removes a notification. The counter is dropped rather than adjusted.
func (s *Service) Delete(ctx context.Context, userID, notificationID string) error {
	wasUnread, err := s.store.DeleteNotification(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("delete notification %s: %w", notificationID, err)
	}
	s.counts.InvalidateNotificationCount(userID)
	s.logger.Debug("notification deleted", "user_id", userID, "was_unread", wasUnread)
	return nil
}
