package marker

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// exercise runs the contract every Store must satisfy.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	at, err := s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.True(t, at.IsZero(), "unwritten marker reads as zero time")

	t1 := time.Unix(1_700_000_000, 123)
	require.NoError(t, s.Bump(ctx, t1))
	at, err = s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.True(t, at.Equal(t1), "got %v want %v", at, t1)

	t2 := t1.Add(time.Second)
	require.NoError(t, s.Bump(ctx, t2))
	at, err = s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.True(t, at.Equal(t2))

	// an older bump never moves the marker backwards
	require.NoError(t, s.Bump(ctx, t1))
	at, err = s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.True(t, at.Equal(t2))
}

// TestMemoryStore_Contract satisfies the store contract and counts calls.
func TestMemoryStore_Contract(t *testing.T) {
	s := NewMemoryStore()
	exercise(t, s)
	require.Equal(t, int64(4), s.Reads())
	require.Equal(t, int64(3), s.Bumps())
}

// TestMemoryStore_Fail returns the injected error until cleared.
func TestMemoryStore_Fail(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("boom")
	s.Fail(boom)

	_, err := s.LastUpdatedAt(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, s.Bump(context.Background(), time.Now()), boom)

	s.Fail(nil)
	_, err = s.LastUpdatedAt(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	_, err = s.LastUpdatedAt(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

// TestSQLStore_Contract persists the marker in a SQLite file.
func TestSQLStore_Contract(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "marker.db"), "feed_cache_version")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exercise(t, s)
}

// TestSQLStore_SharedAcrossHandles makes a bump visible to a second connection on the same file.
func TestSQLStore_SharedAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marker.db")
	ctx := context.Background()

	a, err := OpenSQLite(ctx, path, "v")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	b, err := OpenSQLite(ctx, path, "v")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	at := time.Unix(1_700_000_500, 0)
	require.NoError(t, a.Bump(ctx, at))

	got, err := b.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.True(t, got.Equal(at))
}

// TestOpenSQLite_Validation rejects an empty path or id.
func TestOpenSQLite_Validation(t *testing.T) {
	_, err := OpenSQLite(context.Background(), " ", "v")
	require.Error(t, err)
	_, err = OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "x.db"), "")
	require.Error(t, err)
}

// TestRedisStore_Contract keeps the marker under a single Redis key.
func TestRedisStore_Contract(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exercise(t, NewRedisStore(client, "feed_cache_version"))
	require.True(t, mr.Exists("feed_cache_version"))
}

// TestRedisStore_Bump_NanosecondOrder orders bumps a few nanoseconds apart, below double precision.
func TestRedisStore_Bump_NanosecondOrder(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, "v")

	t1 := time.Unix(1_760_000_000, 100)
	require.NoError(t, s.Bump(ctx, t1))
	require.NoError(t, s.Bump(ctx, t1.Add(5)))
	at, err := s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.Equal(t, t1.Add(5).UnixNano(), at.UnixNano())

	require.NoError(t, s.Bump(ctx, t1.Add(3)))
	at, err = s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.Equal(t, t1.Add(5).UnixNano(), at.UnixNano())

	// zero-padded values written by another writer still compare numerically
	require.NoError(t, mr.Set("v", "0"+strconv.FormatInt(t1.UnixNano(), 10)))
	require.NoError(t, s.Bump(ctx, t1.Add(1)))
	at, err = s.LastUpdatedAt(ctx)
	require.NoError(t, err)
	require.Equal(t, t1.Add(1).UnixNano(), at.UnixNano())
}

// TestRedisStore_Unavailable surfaces connection errors to the caller.
func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, "k")
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.LastUpdatedAt(ctx)
	require.Error(t, err)
}
