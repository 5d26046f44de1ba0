package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/marker"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	start   = time.Unix(1_700_000_000, 0)
	ctx     = context.Background()
)

func feedCfg(eventBased bool) config.FeedCfg {
	return config.FeedCfg{
		TTLSeconds:   300,
		MaxSize:      1000,
		EventBased:   &eventBased,
		PollInterval: time.Second,
	}
}

func markerCfg() *config.MarkerCfg {
	return &config.MarkerCfg{Timeout: time.Second, BreakerFailures: 3, BreakerTimeout: time.Minute}
}

func newMock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(start)
	return clk
}

func page(id string) *model.Feed {
	return &model.Feed{Posts: []model.Post{{ID: id}}, TotalReturned: 1}
}

// TestCache_Get_TTLExpiry serves an entry until its TTL and never after.
func TestCache_Get_TTLExpiry(t *testing.T) {
	clk := newMock()
	c := New(feedCfg(false), nil, nil, clk, discard, nil)
	c.Set("u1", 20, nil, nil, page("a"))

	clk.Add(299 * time.Second)
	got, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "a", got.Posts[0].ID)

	clk.Add(time.Second)
	_, ok = c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)

	stats := c.Stats()
	require.Equal(t, 0, stats.TotalEntries)
	require.Equal(t, int64(1), stats.Expirations)
	require.False(t, stats.EventBased)
}

// TestCache_Get_EventBasedAcrossProcesses treats entries as stale once another process bumps the marker.
func TestCache_Get_EventBasedAcrossProcesses(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	reader := New(feedCfg(true), markerCfg(), store, clk, discard, nil)
	writer := New(feedCfg(true), markerCfg(), store, clk, discard, nil)

	reader.Set("u1", 20, nil, nil, page("a"))

	clk.Add(10 * time.Millisecond)
	require.NoError(t, writer.InvalidateViaDatabase(ctx))

	clk.Add(2 * time.Second)
	_, ok := reader.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok, "entry cached before the bump must be stale")
	require.Equal(t, 0, reader.Stats().TotalEntries)
	require.Equal(t, int64(1), reader.Stats().Invalidations)
}

// TestCache_Get_StaleWithinPollWindow keeps serving until the poll window elapses.
func TestCache_Get_StaleWithinPollWindow(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	reader := New(feedCfg(true), markerCfg(), store, clk, discard, nil)
	writer := New(feedCfg(true), markerCfg(), store, clk, discard, nil)

	reader.Set("u1", 20, nil, nil, page("a"))

	clk.Add(100 * time.Millisecond)
	_, ok := reader.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)

	clk.Add(100 * time.Millisecond)
	require.NoError(t, writer.InvalidateViaDatabase(ctx))

	clk.Add(100 * time.Millisecond)
	_, ok = reader.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok, "bump is not observed before the poll window elapses")

	clk.Add(time.Second)
	_, ok = reader.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
}

// TestCache_Get_RateLimitedMarkerReads reads the marker at most once per poll interval.
func TestCache_Get_RateLimitedMarkerReads(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	c := New(feedCfg(true), markerCfg(), store, clk, discard, nil)
	c.Set("u1", 20, nil, nil, page("a"))

	for i := 0; i < 5; i++ {
		_, ok := c.Get(ctx, "u1", 20, nil, nil)
		require.True(t, ok)
		clk.Add(100 * time.Millisecond)
	}
	require.Equal(t, int64(1), store.Reads())

	clk.Add(time.Second)
	_, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, int64(2), store.Reads())
	require.Equal(t, int64(2), c.Stats().MarkerReads)
}

// TestCache_Get_MissDoesNotReadMarker skips the marker when nothing is cached.
func TestCache_Get_MissDoesNotReadMarker(t *testing.T) {
	store := marker.NewMemoryStore()
	c := New(feedCfg(true), markerCfg(), store, newMock(), discard, nil)

	_, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
	require.Zero(t, store.Reads())
}

// TestCache_Get_MarkerEqualToCachedAtIsValid requires the marker to be strictly newer.
func TestCache_Get_MarkerEqualToCachedAtIsValid(t *testing.T) {
	clk := newMock()
	c := New(feedCfg(true), markerCfg(), marker.NewMemoryStore(), clk, discard, nil)

	c.Set("u1", 20, nil, nil, page("a"))
	require.NoError(t, c.InvalidateViaDatabase(ctx))

	_, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
}

// TestCache_InvalidateViaDatabase_ReadYourWrites sees the local bump without waiting for a poll.
func TestCache_InvalidateViaDatabase_ReadYourWrites(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	c := New(feedCfg(true), markerCfg(), store, clk, discard, nil)

	c.Set("u1", 20, nil, nil, page("a"))
	_, ok := c.Get(ctx, "u1", 20, nil, nil) // consumes the poll token
	require.True(t, ok)

	clk.Add(time.Millisecond)
	require.NoError(t, c.InvalidateViaDatabase(ctx))

	clk.Add(time.Millisecond)
	_, ok = c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
	require.Equal(t, int64(1), store.Reads())
}

// TestCache_Get_DegradesToTTLOnMarkerFailure serves TTL-valid entries when the store fails.
func TestCache_Get_DegradesToTTLOnMarkerFailure(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	c := New(feedCfg(true), markerCfg(), store, clk, discard, m)
	c.Set("u1", 20, nil, nil, page("a"))

	store.Fail(errors.New("connection refused"))
	clk.Add(time.Second)

	got, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "a", got.Posts[0].ID)
	require.Equal(t, int64(1), c.Stats().MarkerFailures)
	require.Equal(t, 1.0, testutil.ToFloat64(m.MarkerReads.WithLabelValues(metrics.MarkerError)))

	// TTL still applies while degraded
	clk.Add(300 * time.Second)
	_, ok = c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
}

// TestCache_Get_DegradedKeepsLastKnownMarker keeps rejecting entries older than a marker this process already saw.
func TestCache_Get_DegradedKeepsLastKnownMarker(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	c := New(feedCfg(true), markerCfg(), store, clk, discard, nil)
	c.Set("u1", 20, nil, nil, page("a"))

	clk.Add(10 * time.Millisecond)
	require.NoError(t, c.InvalidateViaDatabase(ctx))

	clk.Add(time.Second)
	store.Fail(errors.New("connection refused"))

	_, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
	require.Equal(t, int64(1), c.Stats().MarkerFailures)

	// entries cached after the known marker stay valid while degraded
	c.Set("u1", 20, nil, nil, page("b"))
	clk.Add(time.Second)
	got, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "b", got.Posts[0].ID)
}

// TestCache_Get_BreakerOpensAfterFailures stops calling a failing store.
func TestCache_Get_BreakerOpensAfterFailures(t *testing.T) {
	clk := newMock()
	store := marker.NewMemoryStore()
	c := New(feedCfg(true), markerCfg(), store, clk, discard, nil)
	c.Set("u1", 20, nil, nil, page("a"))
	store.Fail(errors.New("down"))

	for i := 0; i < 5; i++ {
		clk.Add(time.Second)
		_, ok := c.Get(ctx, "u1", 20, nil, nil)
		require.True(t, ok)
	}
	require.Equal(t, int64(3), store.Reads(), "breaker opens after 3 consecutive failures")
	require.Equal(t, int64(5), c.Stats().MarkerFailures)
}

// TestCache_InvalidateViaDatabase_ReturnsStoreError reports a failed bump.
func TestCache_InvalidateViaDatabase_ReturnsStoreError(t *testing.T) {
	store := marker.NewMemoryStore()
	c := New(feedCfg(true), markerCfg(), store, newMock(), discard, nil)
	store.Fail(errors.New("read only"))

	require.Error(t, c.InvalidateViaDatabase(ctx))
}

// TestCache_InvalidateViaDatabase_WithoutStoreClearsLocally falls back to a local clear.
func TestCache_InvalidateViaDatabase_WithoutStoreClearsLocally(t *testing.T) {
	c := New(feedCfg(true), nil, nil, newMock(), discard, nil)
	c.Set("u1", 20, nil, nil, page("a"))

	require.NoError(t, c.InvalidateViaDatabase(ctx))
	_, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
}

// TestCache_KeyIsolation keeps distinct users and cursors apart.
func TestCache_KeyIsolation(t *testing.T) {
	c := New(feedCfg(false), nil, nil, newMock(), discard, nil)
	cursor := "2025-01-01T00:00:00Z"

	c.Set("userA", 20, nil, nil, page("a"))
	c.Set("userB", 20, nil, nil, page("b"))
	c.Set("userA", 20, &cursor, nil, page("a2"))

	got, ok := c.Get(ctx, "userA", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "a", got.Posts[0].ID)
	got, ok = c.Get(ctx, "userB", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "b", got.Posts[0].ID)
	got, ok = c.Get(ctx, "userA", 20, &cursor, nil)
	require.True(t, ok)
	require.Equal(t, "a2", got.Posts[0].ID)
	_, ok = c.Get(ctx, "userA", 10, nil, nil)
	require.False(t, ok)
}

// TestCache_Invalidate_ClearsAllUsers documents that a per-user invalidate clears every user's pages.
func TestCache_Invalidate_ClearsAllUsers(t *testing.T) {
	c := New(feedCfg(false), nil, nil, newMock(), discard, nil)
	c.Set("userA", 20, nil, nil, page("a"))
	c.Set("userB", 20, nil, nil, page("b"))

	require.Equal(t, 2, c.Invalidate("userA"))

	_, ok := c.Get(ctx, "userB", 20, nil, nil)
	require.False(t, ok, "userB is cleared too, the user id does not scope invalidation")
}

// TestCache_Set_FIFOEviction evicts the oldest page once max size is reached.
func TestCache_Set_FIFOEviction(t *testing.T) {
	cfg := feedCfg(false)
	cfg.MaxSize = 2
	c := New(cfg, nil, nil, newMock(), discard, nil)

	c.Set("u1", 20, nil, nil, page("1"))
	c.Set("u2", 20, nil, nil, page("2"))
	c.Set("u3", 20, nil, nil, page("3"))

	_, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)
	_, ok = c.Get(ctx, "u3", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, int64(1), c.Stats().Evictions)
}

// TestCache_Get_ReturnsCopy isolates callers rewriting URLs from the stored page.
func TestCache_Get_ReturnsCopy(t *testing.T) {
	c := New(feedCfg(false), nil, nil, newMock(), discard, nil)
	orig := &model.Feed{Posts: []model.Post{{ID: "p", MediaItems: []model.Media{{URL: "https://old"}}}}}
	c.Set("u1", 20, nil, nil, orig)
	orig.Posts[0].MediaItems[0].URL = "https://mutated-after-set"

	got, _ := c.Get(ctx, "u1", 20, nil, nil)
	require.Equal(t, "https://old", got.Posts[0].MediaItems[0].URL)
	got.Posts[0].MediaItems[0].URL = "https://new"

	again, _ := c.Get(ctx, "u1", 20, nil, nil)
	require.Equal(t, "https://old", again.Posts[0].MediaItems[0].URL)
}

// TestCache_EndToEnd sets, invalidates through the marker, and recomputes.
func TestCache_EndToEnd(t *testing.T) {
	clk := newMock()
	c := New(feedCfg(true), markerCfg(), marker.NewMemoryStore(), clk, discard, nil)

	c.Set("u1", 20, nil, nil, page("feedA"))
	got, ok := c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "feedA", got.Posts[0].ID)

	clk.Add(time.Millisecond)
	require.NoError(t, c.InvalidateViaDatabase(ctx))

	clk.Add(1100 * time.Millisecond)
	_, ok = c.Get(ctx, "u1", 20, nil, nil)
	require.False(t, ok)

	clk.Add(time.Millisecond)
	c.Set("u1", 20, nil, nil, page("feedB"))
	got, ok = c.Get(ctx, "u1", 20, nil, nil)
	require.True(t, ok)
	require.Equal(t, "feedB", got.Posts[0].ID)
}

// TestCache_CleanupExpired sweeps expired pages and reports marker state in stats.
func TestCache_CleanupExpired(t *testing.T) {
	clk := newMock()
	c := New(feedCfg(true), markerCfg(), marker.NewMemoryStore(), clk, discard, nil)
	c.Set("u1", 20, nil, nil, page("a"))
	c.Set("u2", 20, nil, nil, page("b"))
	require.NoError(t, c.InvalidateViaDatabase(ctx))

	clk.Add(5 * time.Minute)
	require.Equal(t, 2, c.CleanupExpired())

	stats := c.Stats()
	require.True(t, stats.EventBased)
	require.NotNil(t, stats.MarkerUpdatedAt)
	require.Equal(t, int64(1000), stats.PollIntervalMs)
}
