package model

import "time"

// Feed is the assembled feed page cached per (user, limit, cursor, offset).
type Feed struct {
	Posts         []Post  `json:"posts"`
	NextCursor    *string `json:"next_cursor"`
	NextOffset    *int    `json:"next_offset"`
	HasMore       bool    `json:"has_more"`
	TotalReturned int     `json:"total_returned"`
}

type Post struct {
	ID                string     `json:"id"`
	UserID            string     `json:"-"`
	Content           string     `json:"content"`
	PostType          string     `json:"post_type"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	IsPinned          bool       `json:"is_pinned"`
	PodcastEpisodeURL *string    `json:"podcast_episode_url"`
	Engagement        Engagement `json:"engagement"`
	User              Author     `json:"user"`
	MediaURLs         []string   `json:"media_urls"`
	MediaItems        []Media    `json:"media_items"`
	IsLiked           bool       `json:"is_liked"`
	IsSaved           bool       `json:"is_saved"`
	Category          *Category  `json:"category"`
}

type Engagement struct {
	LikesCount    int `json:"likes_count"`
	CommentsCount int `json:"comments_count"`
	SharesCount   int `json:"shares_count"`
	SavesCount    int `json:"saves_count"`
}

// Author is the post owner as embedded in a feed. AvatarStoragePath is kept so the
// signed AvatarURL can be regenerated on every cache hit.
type Author struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	AvatarURL         *string `json:"avatar_url"`
	AvatarStoragePath *string `json:"avatar_storage_path"`
	PodcastName       *string `json:"podcast_name"`
	PodcastID         *string `json:"podcast_id"`
	Bio               *string `json:"bio"`
}

// Media is a post attachment. URL is signed when StoragePath is set, public otherwise.
type Media struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	StoragePath  *string  `json:"storage_path"`
	Type         string   `json:"type"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	Duration     *float64 `json:"duration"`
	Width        *int     `json:"width"`
	Height       *int     `json:"height"`
}

type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Color       string  `json:"color"`
	ImageURL    *string `json:"image_url"`
}

// Clone copies every slice and nested struct. Pointer fields are shared, so callers
// replace them instead of writing through them.
func (f *Feed) Clone() *Feed {
	if f == nil {
		return nil
	}
	out := *f
	if f.Posts != nil {
		out.Posts = make([]Post, len(f.Posts))
		for i := range f.Posts {
			out.Posts[i] = f.Posts[i].clone()
		}
	}
	return &out
}

func (p Post) clone() Post {
	if p.MediaURLs != nil {
		p.MediaURLs = append([]string(nil), p.MediaURLs...)
	}
	if p.MediaItems != nil {
		p.MediaItems = append([]Media(nil), p.MediaItems...)
	}
	if p.Category != nil {
		c := *p.Category
		p.Category = &c
	}
	return p
}
