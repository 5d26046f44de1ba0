package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/google/uuid"
)

const feedColumns = `p.id, p.user_id, p.content, p.post_type, p.podcast_episode_url, p.category_id, p.is_pinned,
	p.likes_count, p.comments_count, p.shares_count, p.saves_count, p.created_at, p.updated_at,
	c.id, c.name, c.display_name, c.color, c.image_url`

// ListFeed returns live posts, pinned first then newest first.
func (s *Store) ListFeed(ctx context.Context, q storage.FeedQuery) ([]storage.PostRecord, error) {
	query := `SELECT ` + feedColumns + `
		FROM posts p LEFT JOIN post_categories c ON c.id = p.category_id
		WHERE p.deleted_at IS NULL`
	args := []any{}
	switch {
	case q.Cursor != nil && q.CursorPinned:
		// rest of the pinned block, then every unpinned post
		query += ` AND ((p.is_pinned = 1 AND p.created_at < ?) OR p.is_pinned = 0)`
		args = append(args, nanos(*q.Cursor))
	case q.Cursor != nil:
		query += ` AND p.is_pinned = 0 AND p.created_at < ?`
		args = append(args, nanos(*q.Cursor))
	}
	query += ` ORDER BY p.is_pinned DESC, p.created_at DESC LIMIT ?`
	args = append(args, q.Limit)
	if q.Cursor == nil && q.Offset != nil && *q.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, *q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	var posts []storage.PostRecord
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed: %w", err)
	}

	if err = s.attachMedia(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func scanPost(rows *sql.Rows) (storage.PostRecord, error) {
	var (
		p                          storage.PostRecord
		episodeURL, categoryID     sql.NullString
		catID, catName, catDisplay sql.NullString
		catColor, catImage         sql.NullString
		pinned                     bool
		createdAt, updatedAt       int64
	)
	err := rows.Scan(&p.ID, &p.UserID, &p.Content, &p.PostType, &episodeURL, &categoryID, &pinned,
		&p.Engagement.LikesCount, &p.Engagement.CommentsCount, &p.Engagement.SharesCount, &p.Engagement.SavesCount,
		&createdAt, &updatedAt,
		&catID, &catName, &catDisplay, &catColor, &catImage)
	if err != nil {
		return p, fmt.Errorf("scan post: %w", err)
	}
	p.PodcastEpisodeURL = stringPtr(episodeURL)
	p.CategoryID = stringPtr(categoryID)
	p.IsPinned = pinned
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	if catID.Valid {
		p.Category = &model.Category{
			ID:          catID.String,
			Name:        catName.String,
			DisplayName: catDisplay.String,
			Color:       catColor.String,
			ImageURL:    stringPtr(catImage),
		}
	}
	return p, nil
}

func (s *Store) attachMedia(ctx context.Context, posts []storage.PostRecord) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	index := make(map[string]int, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		index[p.ID] = i
	}

	placeholders, args := in(ids)
	rows, err := s.db.QueryContext(ctx, `SELECT post_id, id, url, storage_path, type, thumbnail_url, duration, width, height
		FROM post_media WHERE post_id IN (`+placeholders+`) ORDER BY post_id, position`, args...)
	if err != nil {
		return fmt.Errorf("query post media: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID             string
			m                  storage.MediaRecord
			storagePath, thumb sql.NullString
			duration           sql.NullFloat64
			width, height      sql.NullInt64
		)
		if err = rows.Scan(&postID, &m.ID, &m.URL, &storagePath, &m.Type, &thumb, &duration, &width, &height); err != nil {
			return fmt.Errorf("scan post media: %w", err)
		}
		m.StoragePath = stringPtr(storagePath)
		m.ThumbnailURL = stringPtr(thumb)
		m.Duration = floatPtr(duration)
		m.Width = intPtr(width)
		m.Height = intPtr(height)
		i := index[postID]
		posts[i].Media = append(posts[i].Media, m)
	}
	return rows.Err()
}

func (s *Store) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return s.engaged(ctx, "post_likes", userID, postIDs)
}

func (s *Store) SavedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return s.engaged(ctx, "post_saves", userID, postIDs)
}

// engaged reads post ids from a (post_id, user_id) table; table is never user input.
func (s *Store) engaged(ctx context.Context, table, userID string, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	placeholders, args := in(postIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id FROM `+table+` WHERE user_id = ? AND post_id IN (`+placeholders+`)`,
		append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, p storage.PostRecord) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO posts
			(id, user_id, content, post_type, podcast_episode_url, category_id, is_pinned, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.UserID, p.Content, p.PostType, nullString(p.PodcastEpisodeURL), nullString(p.CategoryID),
			p.IsPinned, nanos(p.CreatedAt), nanos(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		for i, m := range p.Media {
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			_, err = tx.ExecContext(ctx, `INSERT INTO post_media
				(id, post_id, position, url, storage_path, type, thumbnail_url, duration, width, height)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				m.ID, p.ID, i, m.URL, nullString(m.StoragePath), m.Type, nullString(m.ThumbnailURL),
				nullFloat(m.Duration), nullInt(m.Width), nullInt(m.Height))
			if err != nil {
				return fmt.Errorf("insert post media: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) UpdatePostContent(ctx context.Context, postID, userID, content string, at time.Time) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := ownPost(ctx, tx, postID, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE posts SET content = ?, updated_at = ? WHERE id = ?`, content, nanos(at), postID)
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		return nil
	})
}

func (s *Store) DeletePost(ctx context.Context, postID, userID string, at time.Time) ([]string, error) {
	var paths []string
	err := s.tx(ctx, func(tx *sql.Tx) error {
		if err := ownPost(ctx, tx, postID, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET deleted_at = ? WHERE id = ?`, nanos(at), postID); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT storage_path FROM post_media WHERE post_id = ? AND storage_path IS NOT NULL ORDER BY position`, postID)
		if err != nil {
			return fmt.Errorf("query deleted post media: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var p string
			if err = rows.Scan(&p); err != nil {
				return fmt.Errorf("scan deleted post media: %w", err)
			}
			paths = append(paths, p)
		}
		return rows.Err()
	})
	return paths, err
}

func (s *Store) ToggleLike(ctx context.Context, postID, userID string, at time.Time) (bool, error) {
	return s.toggle(ctx, "post_likes", "likes_count", postID, userID, at)
}

func (s *Store) ToggleSave(ctx context.Context, postID, userID string, at time.Time) (bool, error) {
	return s.toggle(ctx, "post_saves", "saves_count", postID, userID, at)
}

// toggle flips membership in table and keeps the denormalized counter in sync.
func (s *Store) toggle(ctx context.Context, table, counter, postID, userID string, at time.Time) (on bool, err error) {
	err = s.tx(ctx, func(tx *sql.Tx) error {
		if err := livePost(ctx, tx, postID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id = ? AND user_id = ?`, postID, userID)
		if err != nil {
			return fmt.Errorf("toggle %s: %w", table, err)
		}
		removed, _ := res.RowsAffected()
		delta := -1
		if removed == 0 {
			if _, err = tx.ExecContext(ctx, `INSERT INTO `+table+` (post_id, user_id, created_at) VALUES (?, ?, ?)`,
				postID, userID, nanos(at)); err != nil {
				return fmt.Errorf("toggle %s: %w", table, err)
			}
			delta, on = 1, true
		}
		_, err = tx.ExecContext(ctx, `UPDATE posts SET `+counter+` = MAX(`+counter+` + ?, 0) WHERE id = ?`, delta, postID)
		if err != nil {
			return fmt.Errorf("update %s: %w", counter, err)
		}
		return nil
	})
	return on, err
}

func (s *Store) AddComment(ctx context.Context, c storage.CommentRecord) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if err := livePost(ctx, tx, c.PostID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_comments (id, post_id, user_id, content, created_at)
			VALUES (?, ?, ?, ?, ?)`, c.ID, c.PostID, c.UserID, c.Content, nanos(c.CreatedAt)); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id = ?`, c.PostID); err != nil {
			return fmt.Errorf("update comments_count: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteComment(ctx context.Context, commentID, userID string, at time.Time) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		var postID, owner string
		err := tx.QueryRowContext(ctx, `SELECT post_id, user_id FROM post_comments WHERE id = ? AND deleted_at IS NULL`,
			commentID).Scan(&postID, &owner)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read comment: %w", err)
		}
		if owner != userID {
			return storage.ErrForbidden
		}
		if _, err = tx.ExecContext(ctx, `UPDATE post_comments SET deleted_at = ? WHERE id = ?`, nanos(at), commentID); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `UPDATE posts SET comments_count = MAX(comments_count - 1, 0) WHERE id = ?`, postID); err != nil {
			return fmt.Errorf("update comments_count: %w", err)
		}
		return nil
	})
}

func livePost(ctx context.Context, tx *sql.Tx, postID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ? AND deleted_at IS NULL`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read post: %w", err)
	}
	return nil
}

func ownPost(ctx context.Context, tx *sql.Tx, postID, userID string) error {
	var owner string
	err := tx.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = ? AND deleted_at IS NULL`, postID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read post: %w", err)
	}
	if owner != userID {
		return storage.ErrForbidden
	}
	return nil
}
