package config

import "time"

type FeedCfg struct {
	TTLSeconds int `yaml:"ttl_seconds" env:"FEED_CACHE_TTL_SECONDS" envDefault:"300"`
	MaxSize    int `yaml:"max_size" env:"FEED_CACHE_MAX_SIZE" envDefault:"1000"`

	// EventBased enables staleness detection through the shared version marker.
	// It is only effective when a Marker section is configured.
	EventBased *bool `yaml:"event_based" env:"FEED_CACHE_EVENT_BASED" envDefault:"true"`

	// PollInterval bounds marker reads to one per interval per process.
	PollInterval time.Duration `yaml:"poll_interval" env:"FEED_CACHE_POLL_INTERVAL" envDefault:"1s"`

	// RegenerateConcurrency caps parallel URL signing when serving a cached feed.
	RegenerateConcurrency int `yaml:"regenerate_concurrency" env:"FEED_URL_REGENERATE_CONCURRENCY" envDefault:"10"`
}

func (cfg *FeedCfg) TTL() time.Duration { return time.Duration(cfg.TTLSeconds) * time.Second }

func (cfg *FeedCfg) IsEventBased() bool { return cfg.EventBased == nil || *cfg.EventBased }
