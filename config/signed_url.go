package config

import "time"

type SignedURLCfg struct {
	// TTLMinutes caps how long a signed URL is cached; the effective TTL is min(expiry, TTL).
	TTLMinutes int `yaml:"ttl_minutes" env:"SIGNED_URL_TTL_MINUTES" envDefault:"60"`
	MaxSize    int `yaml:"max_size" env:"SIGNED_URL_CACHE_MAX_SIZE" envDefault:"10000"`

	// DefaultExpirySeconds is the validity requested from the signer when callers pass none.
	DefaultExpirySeconds int `yaml:"default_expiry_seconds" env:"SIGNED_URL_DEFAULT_EXPIRY_SECONDS" envDefault:"3600"`
}

func (cfg *SignedURLCfg) TTL() time.Duration { return time.Duration(cfg.TTLMinutes) * time.Minute }

func (cfg *SignedURLCfg) DefaultExpiry() time.Duration {
	return time.Duration(cfg.DefaultExpirySeconds) * time.Second
}
