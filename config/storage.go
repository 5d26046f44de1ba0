package config

// StorageCfg describes an S3-compatible bucket (Cloudflare R2 in production).
type StorageCfg struct {
	Bucket          string `yaml:"bucket" env:"R2_BUCKET_NAME" envDefault:"media"`
	Endpoint        string `yaml:"endpoint" env:"R2_ENDPOINT"`
	Region          string `yaml:"region" env:"R2_REGION" envDefault:"auto"`
	AccessKeyID     string `yaml:"access_key_id" env:"R2_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"R2_SECRET_ACCESS_KEY"`

	// PublicURL is the public bucket origin; URLs under it are converted back to storage paths before signing.
	PublicURL string `yaml:"public_url" env:"R2_PUBLIC_URL"`

	// DatabasePath is the SQLite file holding posts, profiles and notifications.
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH" envDefault:"feedcache.db"`
}

// Signing reports whether object URLs can be presigned; without an endpoint URLs pass through unsigned.
func (cfg *StorageCfg) Signing() bool {
	return cfg.Enabled() && cfg.Endpoint != ""
}

func (cfg *StorageCfg) Enabled() bool {
	return cfg != nil
}

type LogCfg struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" envDefault:"json"` // json or console
}
