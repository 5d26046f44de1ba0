package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFeedKey_Deterministic returns the same key for the same tuple.
func TestFeedKey_Deterministic(t *testing.T) {
	cursor := "2025-01-01T00:00:00Z"
	a := FeedKey("u1", 20, &cursor, nil)
	b := FeedKey("u1", 20, &cursor, nil)

	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, FeedPrefix))
	require.Len(t, a, len(FeedPrefix)+32)
}

// TestFeedKey_DistinctPerParameter separates users, limits, cursors and offsets without normalization.
func TestFeedKey_DistinctPerParameter(t *testing.T) {
	empty, c1 := "", "c1"
	zero, ten := 0, 10

	keys := []string{
		FeedKey("u1", 20, nil, nil),
		FeedKey("u2", 20, nil, nil),
		FeedKey("u1", 21, nil, nil),
		FeedKey("u1", 20, &c1, nil),
		FeedKey("u1", 20, &empty, nil),
		FeedKey("u1", 20, nil, &zero),
		FeedKey("u1", 20, nil, &ten),
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		_, dup := seen[k]
		require.False(t, dup, "duplicate key %s", k)
		seen[k] = struct{}{}
	}
}

// TestSignedURLPath_RoundTrip extracts paths, including ones containing colons.
func TestSignedURLPath_RoundTrip(t *testing.T) {
	for _, path := range []string{"avatars/u1.png", "a:b/c.jpg", ""} {
		got, ok := SignedURLPath(SignedURLKey(path, 3600))
		require.True(t, ok)
		require.Equal(t, path, got)
	}

	_, ok := SignedURLPath("user_profile:u1")
	require.False(t, ok)
	_, ok = SignedURLPath("signed_url:x:notanumber")
	require.False(t, ok)
}
