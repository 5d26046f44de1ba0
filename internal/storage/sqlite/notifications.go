package sqlite

import (
	"context"
	"fmt"

	"github.com/Borislavv/go-feed-cache/model"
)

func (s *Store) CreateNotification(ctx context.Context, n model.Notification) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications (id, user_id, kind, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, n.ID, n.UserID, n.Kind, n.Message, n.Read, nanos(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, kind, message, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n  model.Notification
			at int64
		)
		if err = rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.Read, &at); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = fromNanos(at)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread for %s: %w", userID, err)
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ? AND is_read = 0`,
		notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteNotification(ctx context.Context, userID, notificationID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ? AND is_read = 0`,
		notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	if _, err = s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`,
		notificationID, userID); err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	return false, nil
}
