package model

import "time"

// Profile is the cached projection of a user. AvatarURL is signed per response and is empty in the cache.
type Profile struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	FirstName         *string   `json:"first_name"`
	LastName          *string   `json:"last_name"`
	Email             *string   `json:"email"`
	Bio               *string   `json:"bio"`
	Location          *string   `json:"location"`
	AvatarURL         *string   `json:"avatar_url"`
	AvatarStoragePath *string   `json:"avatar_storage_path"`
	PodcastID         *string   `json:"podcast_id"`
	PodcastName       *string   `json:"podcast_name"`
	ConnectionsCount  int       `json:"connections_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DisplayName joins first and last name, falling back to fallback.
func DisplayName(first, last *string, fallback string) string {
	switch {
	case first != nil && *first != "" && last != nil && *last != "":
		return *first + " " + *last
	case first != nil && *first != "":
		return *first
	case last != nil && *last != "":
		return *last
	}
	return fallback
}

// Notification is a user notification; only the unread counter is cached.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
