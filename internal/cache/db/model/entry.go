package model

import "time"

// Entry is an immutable cached value. Mutations produce a new Entry through With.
type Entry[V any] struct {
	key       string
	value     V
	cachedAt  time.Time
	expiresAt time.Time
}

func NewEntry[V any](key string, value V, cachedAt time.Time, ttl time.Duration) *Entry[V] {
	return &Entry[V]{
		key:       key,
		value:     value,
		cachedAt:  cachedAt,
		expiresAt: cachedAt.Add(ttl),
	}
}

func (e *Entry[V]) Key() string          { return e.key }
func (e *Entry[V]) Value() V             { return e.value }
func (e *Entry[V]) CachedAt() time.Time  { return e.cachedAt }
func (e *Entry[V]) ExpiresAt() time.Time { return e.expiresAt }

// IsExpired reports whether now has reached the expiration deadline.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// With returns a copy holding value and the same timestamps.
func (e *Entry[V]) With(value V) *Entry[V] {
	return &Entry[V]{
		key:       e.key,
		value:     value,
		cachedAt:  e.cachedAt,
		expiresAt: e.expiresAt,
	}
}
