package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Borislavv/go-feed-cache/internal/storage"
	"github.com/Borislavv/go-feed-cache/model"
)

const profileColumns = `p.user_id, p.name, p.first_name, p.last_name, p.email, p.bio, p.location,
	p.avatar_storage_path, p.podcast_id, p.podcast_name, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM connections c WHERE c.user_id = p.user_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (storage.ProfileRecord, error) {
	var (
		p                                 storage.ProfileRecord
		first, last, email, bio, location sql.NullString
		avatar, podcastID, podcastName    sql.NullString
		createdAt, updatedAt              int64
	)
	err := row.Scan(&p.UserID, &p.Name, &first, &last, &email, &bio, &location,
		&avatar, &podcastID, &podcastName, &createdAt, &updatedAt, &p.ConnectionsCount)
	if err != nil {
		return p, err
	}
	p.FirstName = stringPtr(first)
	p.LastName = stringPtr(last)
	p.Email = stringPtr(email)
	p.Bio = stringPtr(bio)
	p.Location = stringPtr(location)
	p.AvatarStoragePath = stringPtr(avatar)
	p.PodcastID = stringPtr(podcastID)
	p.PodcastName = stringPtr(podcastName)
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (storage.ProfileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM user_profiles p WHERE p.user_id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, storage.ErrNotFound
	}
	if err != nil {
		return p, fmt.Errorf("read profile %s: %w", userID, err)
	}
	return p, nil
}

// GetProfiles returns the profiles that exist; unknown ids are skipped.
func (s *Store) GetProfiles(ctx context.Context, userIDs []string) ([]storage.ProfileRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders, args := in(userIDs)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles p WHERE p.user_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	out := make([]storage.ProfileRecord, 0, len(userIDs))
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpsertProfile(ctx context.Context, p storage.ProfileRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_profiles
		(user_id, name, first_name, last_name, email, bio, location, avatar_storage_path, podcast_id, podcast_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name, first_name = excluded.first_name, last_name = excluded.last_name,
			email = excluded.email, bio = excluded.bio, location = excluded.location,
			avatar_storage_path = excluded.avatar_storage_path, podcast_id = excluded.podcast_id,
			podcast_name = excluded.podcast_name, updated_at = excluded.updated_at`,
		p.UserID, p.Name, nullString(p.FirstName), nullString(p.LastName), nullString(p.Email),
		nullString(p.Bio), nullString(p.Location), nullString(p.AvatarStoragePath),
		nullString(p.PodcastID), nullString(p.PodcastName), nanos(p.CreatedAt), nanos(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// UpdateProfile applies the non-nil fields of u.
func (s *Store) UpdateProfile(ctx context.Context, userID string, u storage.ProfileUpdate, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE user_profiles SET
			first_name = COALESCE(?, first_name),
			last_name = COALESCE(?, last_name),
			bio = COALESCE(?, bio),
			location = COALESCE(?, location),
			updated_at = ?
		WHERE user_id = ?`,
		nullString(u.FirstName), nullString(u.LastName), nullString(u.Bio), nullString(u.Location), nanos(at), userID)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) SetAvatar(ctx context.Context, userID string, storagePath *string, at time.Time) (*string, error) {
	var previous *string
	err := s.tx(ctx, func(tx *sql.Tx) error {
		var prev sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT avatar_storage_path FROM user_profiles WHERE user_id = ?`, userID).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("read avatar %s: %w", userID, err)
		}
		previous = stringPtr(prev)
		if _, err = tx.ExecContext(ctx, `UPDATE user_profiles SET avatar_storage_path = ?, updated_at = ? WHERE user_id = ?`,
			nullString(storagePath), nanos(at), userID); err != nil {
			return fmt.Errorf("update avatar %s: %w", userID, err)
		}
		return nil
	})
	return previous, err
}

// AcceptConnection records the connection in both directions.
func (s *Store) AcceptConnection(ctx context.Context, userID, otherID string, at time.Time) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, pair := range [][2]string{{userID, otherID}, {otherID, userID}} {
			if _, err := tx.ExecContext(ctx, `INSERT INTO connections (user_id, other_id, created_at) VALUES (?, ?, ?)
				ON CONFLICT(user_id, other_id) DO NOTHING`, pair[0], pair[1], nanos(at)); err != nil {
				return fmt.Errorf("insert connection: %w", err)
			}
		}
		return nil
	})
}

// UpsertCategory seeds a post category.
func (s *Store) UpsertCategory(ctx context.Context, c model.Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO post_categories (id, name, display_name, color, image_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, display_name = excluded.display_name,
			color = excluded.color, image_url = excluded.image_url`,
		c.ID, c.Name, c.DisplayName, c.Color, nullString(c.ImageURL))
	if err != nil {
		return fmt.Errorf("upsert category %s: %w", c.ID, err)
	}
	return nil
}
