package config

import "time"

type MarkerBackend string

const (
	MarkerBackendSQLite MarkerBackend = "sqlite"
	MarkerBackendRedis  MarkerBackend = "redis"
)

type MarkerCfg struct {
	Backend MarkerBackend `yaml:"backend" env:"MARKER_BACKEND" envDefault:"sqlite"`

	// ID is the well-known identifier of the single marker row (or Redis key).
	ID string `yaml:"id" env:"MARKER_ID" envDefault:"feed_cache_version"`

	SQLitePath string `yaml:"sqlite_path" env:"MARKER_SQLITE_PATH" envDefault:"feedcache.db"`
	RedisAddr  string `yaml:"redis_addr" env:"REDIS_ADDR"`

	// Timeout bounds a single marker read or write.
	Timeout time.Duration `yaml:"timeout" env:"MARKER_TIMEOUT" envDefault:"500ms"`

	// BreakerFailures consecutive read failures open the circuit; it half-opens after BreakerTimeout.
	BreakerFailures uint32        `yaml:"breaker_failures" env:"MARKER_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `yaml:"breaker_timeout" env:"MARKER_BREAKER_TIMEOUT" envDefault:"30s"`
}

func (cfg *MarkerCfg) Enabled() bool {
	return cfg != nil
}
