package config

import "time"

type SweeperCfg struct {
	Interval time.Duration `yaml:"interval" env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`
}

func (cfg *SweeperCfg) Enabled() bool {
	return cfg != nil
}

type TelemetryCfg struct {
	Interval time.Duration `yaml:"interval" env:"CACHE_TELEMETRY_INTERVAL" envDefault:"30s"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}

type AdminCfg struct {
	Addr            string        `yaml:"addr" env:"ADMIN_ADDR" envDefault:":8081"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"ADMIN_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

func (cfg *AdminCfg) Enabled() bool {
	return cfg != nil
}
