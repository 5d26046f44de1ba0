package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoadFromEnv_Defaults applies documented defaults when nothing is set.
func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Equal(t, 300*time.Second, cfg.Feed.TTL())
	require.Equal(t, 1000, cfg.Feed.MaxSize)
	require.True(t, cfg.Feed.IsEventBased())
	require.Equal(t, time.Second, cfg.Feed.PollInterval)

	require.Equal(t, 60*time.Minute, cfg.SignedURL.TTL())
	require.Equal(t, 10000, cfg.SignedURL.MaxSize)

	require.Equal(t, 60*time.Minute, cfg.Profile.TTL())
	require.Equal(t, 5000, cfg.Profile.MaxSize)
	require.Equal(t, 5*time.Minute, cfg.Profile.NotificationCountTTL())

	require.True(t, cfg.Marker.Enabled())
	require.Equal(t, MarkerBackendSQLite, cfg.Marker.Backend)
}

// TestLoadFromEnv_Overrides reads the documented variable names.
func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("FEED_CACHE_TTL_SECONDS", "30")
	t.Setenv("FEED_CACHE_MAX_SIZE", "5")
	t.Setenv("FEED_CACHE_EVENT_BASED", "false")
	t.Setenv("SIGNED_URL_TTL_MINUTES", "10")
	t.Setenv("SIGNED_URL_CACHE_MAX_SIZE", "7")
	t.Setenv("USER_PROFILE_CACHE_TTL_MINUTES", "15")
	t.Setenv("USER_PROFILE_CACHE_MAX_SIZE", "9")
	t.Setenv("NOTIFICATION_COUNT_CACHE_TTL_MINUTES", "2")
	t.Setenv("MARKER_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Equal(t, 30*time.Second, cfg.Feed.TTL())
	require.Equal(t, 5, cfg.Feed.MaxSize)
	require.False(t, cfg.Feed.IsEventBased())
	require.Equal(t, 10*time.Minute, cfg.SignedURL.TTL())
	require.Equal(t, 7, cfg.SignedURL.MaxSize)
	require.Equal(t, 15*time.Minute, cfg.Profile.TTL())
	require.Equal(t, 9, cfg.Profile.MaxSize)
	require.Equal(t, 2*time.Minute, cfg.Profile.NotificationCountTTL())
	require.Equal(t, MarkerBackendRedis, cfg.Marker.Backend)
	require.Equal(t, "cache:6379", cfg.Marker.RedisAddr)
}

// TestLoadConfig_YAMLPartial fills missing fields and leaves absent sections disabled.
func TestLoadConfig_YAMLPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feed:
  ttl_seconds: 60
  event_based: false
marker:
  backend: redis
  redis_addr: localhost:6379
sweeper: {}
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, time.Minute, cfg.Feed.TTL())
	require.Equal(t, 1000, cfg.Feed.MaxSize)
	require.False(t, cfg.Feed.IsEventBased())
	require.Equal(t, MarkerBackendRedis, cfg.Marker.Backend)
	require.Equal(t, "feed_cache_version", cfg.Marker.ID)
	require.Equal(t, time.Minute, cfg.Sweeper.Interval)
	require.False(t, cfg.Telemetry.Enabled())
	require.False(t, cfg.Admin.Enabled())
}

// TestLoadConfig_Errors reports missing files and invalid backends.
func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("marker:\n  backend: etcd\n"), 0o600))
	_, err = LoadConfig(path)
	require.ErrorContains(t, err, "unknown marker backend")
}
