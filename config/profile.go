package config

import "time"

// ProfileCfg covers both namespaces of the profile cache. They share MaxSize.
type ProfileCfg struct {
	TTLMinutes                  int `yaml:"ttl_minutes" env:"USER_PROFILE_CACHE_TTL_MINUTES" envDefault:"60"`
	MaxSize                     int `yaml:"max_size" env:"USER_PROFILE_CACHE_MAX_SIZE" envDefault:"5000"`
	NotificationCountTTLMinutes int `yaml:"notification_count_ttl_minutes" env:"NOTIFICATION_COUNT_CACHE_TTL_MINUTES" envDefault:"5"`
}

func (cfg *ProfileCfg) TTL() time.Duration { return time.Duration(cfg.TTLMinutes) * time.Minute }

func (cfg *ProfileCfg) NotificationCountTTL() time.Duration {
	return time.Duration(cfg.NotificationCountTTLMinutes) * time.Minute
}
