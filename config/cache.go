package config

// Cache groups configuration of every cache and its supporting workers.
// Optional components are pointers; a nil section disables the component.
type Cache struct {
	Feed      FeedCfg      `yaml:"feed"`
	SignedURL SignedURLCfg `yaml:"signed_url"`
	Profile   ProfileCfg   `yaml:"profile"`

	// Marker configures the shared version-marker store used for cross-process feed invalidation.
	// If nil, the feed cache relies on TTL and local invalidation only.
	Marker *MarkerCfg `yaml:"marker"`

	// Sweeper periodically removes expired entries from every cache.
	// If nil, expired entries are only removed lazily on read.
	Sweeper *SweeperCfg `yaml:"sweeper"`

	// Telemetry periodically logs per-cache counters.
	Telemetry *TelemetryCfg `yaml:"telemetry"`

	// Admin exposes stats, invalidation and Prometheus metrics over HTTP.
	Admin *AdminCfg `yaml:"admin"`

	// Storage configures the S3-compatible object store used to sign media URLs.
	Storage *StorageCfg `yaml:"storage"`

	Log LogCfg `yaml:"log"`
}
