package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultFeedTTLSeconds        = 300
	defaultFeedMaxSize           = 1000
	defaultPollInterval          = time.Second
	defaultRegenerateConcurrency = 10

	defaultSignedURLTTLMinutes    = 60
	defaultSignedURLMaxSize       = 10000
	defaultSignedURLExpirySeconds = 3600

	defaultProfileTTLMinutes           = 60
	defaultProfileMaxSize              = 5000
	defaultNotificationCountTTLMinutes = 5

	defaultMarkerID        = "feed_cache_version"
	defaultMarkerTimeout   = 500 * time.Millisecond
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second

	defaultSweepInterval     = time.Minute
	defaultTelemetryInterval = 30 * time.Second
	defaultShutdownTimeout   = 5 * time.Second

	defaultBucket       = "media"
	defaultDatabasePath = "feedcache.db"
)

// AdjustConfig fills zero values with defaults so partially specified YAML stays usable.
func (cfg *Cache) AdjustConfig() {
	orInt(&cfg.Feed.TTLSeconds, defaultFeedTTLSeconds)
	orInt(&cfg.Feed.MaxSize, defaultFeedMaxSize)
	orDuration(&cfg.Feed.PollInterval, defaultPollInterval)
	orInt(&cfg.Feed.RegenerateConcurrency, defaultRegenerateConcurrency)

	orInt(&cfg.SignedURL.TTLMinutes, defaultSignedURLTTLMinutes)
	orInt(&cfg.SignedURL.MaxSize, defaultSignedURLMaxSize)
	orInt(&cfg.SignedURL.DefaultExpirySeconds, defaultSignedURLExpirySeconds)

	orInt(&cfg.Profile.TTLMinutes, defaultProfileTTLMinutes)
	orInt(&cfg.Profile.MaxSize, defaultProfileMaxSize)
	orInt(&cfg.Profile.NotificationCountTTLMinutes, defaultNotificationCountTTLMinutes)

	if cfg.Marker.Enabled() {
		if cfg.Marker.Backend == "" {
			cfg.Marker.Backend = MarkerBackendSQLite
		}
		if cfg.Marker.ID == "" {
			cfg.Marker.ID = defaultMarkerID
		}
		orDuration(&cfg.Marker.Timeout, defaultMarkerTimeout)
		orDuration(&cfg.Marker.BreakerTimeout, defaultBreakerTimeout)
		if cfg.Marker.BreakerFailures == 0 {
			cfg.Marker.BreakerFailures = defaultBreakerFailures
		}
	}

	if cfg.Sweeper.Enabled() {
		orDuration(&cfg.Sweeper.Interval, defaultSweepInterval)
	}
	if cfg.Telemetry.Enabled() {
		orDuration(&cfg.Telemetry.Interval, defaultTelemetryInterval)
	}
	if cfg.Admin.Enabled() {
		if cfg.Admin.Addr == "" {
			cfg.Admin = nil
		} else {
			orDuration(&cfg.Admin.ShutdownTimeout, defaultShutdownTimeout)
		}
	}
	if cfg.Storage.Enabled() {
		if cfg.Storage.Bucket == "" {
			cfg.Storage.Bucket = defaultBucket
		}
		if cfg.Storage.Region == "" {
			cfg.Storage.Region = "auto"
		}
		if cfg.Storage.DatabasePath == "" {
			cfg.Storage.DatabasePath = defaultDatabasePath
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// Validate rejects configurations the caches cannot run with.
func (cfg *Cache) Validate() error {
	if cfg.Feed.TTLSeconds < 0 || cfg.SignedURL.TTLMinutes < 0 || cfg.Profile.TTLMinutes < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if cfg.Feed.MaxSize < 0 || cfg.SignedURL.MaxSize < 0 || cfg.Profile.MaxSize < 0 {
		return fmt.Errorf("cache max size must not be negative")
	}
	if cfg.Marker.Enabled() {
		switch cfg.Marker.Backend {
		case MarkerBackendSQLite:
			if cfg.Marker.SQLitePath == "" {
				return fmt.Errorf("marker backend %q requires sqlite_path", cfg.Marker.Backend)
			}
		case MarkerBackendRedis:
			if cfg.Marker.RedisAddr == "" {
				return fmt.Errorf("marker backend %q requires redis_addr", cfg.Marker.Backend)
			}
		default:
			return fmt.Errorf("unknown marker backend %q", cfg.Marker.Backend)
		}
	}
	return nil
}

func LoadConfig(path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	cfg := &Cache{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv reads every section from the environment. Optional sections are always enabled here.
func LoadFromEnv() (*Cache, error) {
	cfg := &Cache{
		Marker:    &MarkerCfg{},
		Sweeper:   &SweeperCfg{},
		Telemetry: &TelemetryCfg{},
		Admin:     &AdminCfg{},
		Storage:   &StorageCfg{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.AdjustConfig()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate env config: %w", err)
	}
	return cfg, nil
}

func orInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func orDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}
