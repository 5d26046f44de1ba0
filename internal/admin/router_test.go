package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Borislavv/go-feed-cache/config"
	"github.com/Borislavv/go-feed-cache/internal/feed"
	"github.com/Borislavv/go-feed-cache/internal/marker"
	"github.com/Borislavv/go-feed-cache/internal/metrics"
	"github.com/Borislavv/go-feed-cache/internal/profile"
	"github.com/Borislavv/go-feed-cache/internal/signedurl"
	"github.com/Borislavv/go-feed-cache/internal/sweeper"
	"github.com/Borislavv/go-feed-cache/model"
	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	router  http.Handler
	clk     *clock.Mock
	feeds   *feed.Cache
	urls    *signedurl.Cache
	prof    *profile.Cache
	markers *marker.MemoryStore
}

func newFixture(opts ...func(*Deps)) fixture {
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	eventBased := true
	markers := marker.NewMemoryStore()
	feeds := feed.New(config.FeedCfg{TTLSeconds: 300, MaxSize: 10, EventBased: &eventBased, PollInterval: time.Second},
		&config.MarkerCfg{Timeout: time.Second, BreakerFailures: 5, BreakerTimeout: time.Minute}, markers, clk, discard, m)
	urls := signedurl.New(config.SignedURLCfg{TTLMinutes: 60, MaxSize: 10}, clk, discard, m)
	prof := profile.New(config.ProfileCfg{TTLMinutes: 60, MaxSize: 10, NotificationCountTTLMinutes: 5}, clk, discard, m)
	sw := sweeper.New(&config.SweeperCfg{Interval: time.Minute}, clk, discard, m, feeds, urls, prof)

	d := Deps{Feed: feeds, SignedURLs: urls, Profiles: prof, Sweeper: sw, Gatherer: reg, Logger: discard}
	for _, opt := range opts {
		opt(&d)
	}
	return fixture{
		router:  NewRouter(d),
		clk:     clk,
		feeds:   feeds,
		urls:    urls,
		prof:    prof,
		markers: markers,
	}
}

func (f fixture) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	body := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

// TestRouter_Stats reports every cache.
func TestRouter_Stats(t *testing.T) {
	f := newFixture()
	f.urls.Set("a.jpg", "https://a", time.Hour)
	f.prof.Set("u1", model.Profile{ID: "u1"})
	f.prof.SetNotificationCount("u1", 3, 0)

	rec, body := f.do(t, http.MethodGet, "/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	feedStats := body["feed"].(map[string]any)
	require.Equal(t, "feed", feedStats["name"])
	require.Equal(t, true, feedStats["event_based"])

	urlStats := body["signed_url"].(map[string]any)
	require.EqualValues(t, 1, urlStats["total_entries"])

	profStats := body["profile"].(map[string]any)
	require.EqualValues(t, 1, profStats["profile_entries"])
	require.EqualValues(t, 1, profStats["notification_count_entries"])

	require.NotNil(t, body["sweeper"])
}

// TestRouter_FeedInvalidate bumps the shared marker.
func TestRouter_FeedInvalidate(t *testing.T) {
	f := newFixture()

	rec, _ := f.do(t, http.MethodPost, "/cache/feed/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(1), f.markers.Bumps())

	f.markers.Fail(errors.New("db down"))
	rec, body := f.do(t, http.MethodPost, "/cache/feed/invalidate")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, body["error"], "db down")
}

// TestRouter_FeedLocal clears this process's feed pages.
func TestRouter_FeedLocal(t *testing.T) {
	f := newFixture()
	f.feeds.Set("u1", 20, nil, nil, &model.Feed{})

	rec, body := f.do(t, http.MethodDelete, "/cache/feed")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["removed"])
	_, ok := f.feeds.Get(context.Background(), "u1", 20, nil, nil)
	require.False(t, ok)
}

// TestRouter_Profiles removes one user or all of them.
func TestRouter_Profiles(t *testing.T) {
	f := newFixture()
	f.prof.Set("u1", model.Profile{ID: "u1"})
	f.prof.Set("u2", model.Profile{ID: "u2"})
	f.prof.SetNotificationCount("u2", 1, 0)

	_, body := f.do(t, http.MethodDelete, "/cache/profiles/u1")
	require.Equal(t, true, body["removed"])
	_, ok := f.prof.Get("u1")
	require.False(t, ok)

	_, body = f.do(t, http.MethodDelete, "/cache/notification-counts/u2")
	require.Equal(t, true, body["removed"])

	_, body = f.do(t, http.MethodDelete, "/cache/profiles")
	require.EqualValues(t, 1, body["removed"])
}

// TestRouter_SignedURLs invalidates one path or the whole cache.
func TestRouter_SignedURLs(t *testing.T) {
	f := newFixture()
	f.urls.Set("a.jpg", "https://a1", time.Hour)
	f.urls.Set("a.jpg", "https://a2", time.Minute)
	f.urls.Set("b.jpg", "https://b", time.Hour)

	_, body := f.do(t, http.MethodDelete, "/cache/signed-urls?path=a.jpg")
	require.EqualValues(t, 2, body["removed"])

	_, body = f.do(t, http.MethodDelete, "/cache/signed-urls")
	require.EqualValues(t, 1, body["removed"])
}

// TestRouter_Cleanup removes expired entries from every cache.
func TestRouter_Cleanup(t *testing.T) {
	f := newFixture()
	f.urls.Set("a.jpg", "https://a", time.Minute)
	f.prof.SetNotificationCount("u1", 1, 0)
	f.clk.Add(10 * time.Minute)

	rec, body := f.do(t, http.MethodPost, "/cache/cleanup")
	require.Equal(t, http.StatusOK, rec.Code)
	removed := body["removed"].(map[string]any)
	require.EqualValues(t, 1, removed["signed_url"])
	require.EqualValues(t, 1, removed["profile"])
	require.EqualValues(t, 0, removed["feed"])
}

// TestRouter_Metrics serves the Prometheus registry.
func TestRouter_Metrics(t *testing.T) {
	f := newFixture()
	_, _ = f.urls.Get("missing", time.Hour)

	rec, _ := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `feedcache_misses_total{cache="signed_url"} 1`)

	rec, body := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}
