package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// EnvConfig is a DTO used exclusively for environment parsing.
type EnvConfig struct {
	HomeServerURL          string        `env:"MXKEEPER_HOMESERVER_URL"`
	DatabasePath           string        `env:"MXKEEPER_DATABASE_PATH"`
	RequestTimeout         time.Duration `env:"MXKEEPER_REQUEST_TIMEOUT"`
	ProfileRefreshInterval time.Duration `env:"MXKEEPER_PROFILE_REFRESH_INTERVAL"`
}

// parseEnv overlays Config with values from MXKEEPER_* environment
// variables. Unset variables keep the earlier values. Panics on malformed
// values, matching the JSON loader.
func parseEnv(ctx context.Context, cfg *Config) {
	parseEnvWith(ctx, cfg, envconfig.OsLookuper())
}

func parseEnvWith(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) {
	var ec EnvConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &ec, Lookuper: lookuper}); err != nil {
		panic(err)
	}

	if ec.HomeServerURL != "" {
		cfg.HomeServerURL = ec.HomeServerURL
	}
	if ec.DatabasePath != "" {
		cfg.DatabasePath = ec.DatabasePath
	}
	if ec.RequestTimeout != 0 {
		cfg.RequestTimeout = ec.RequestTimeout
	}
	if ec.ProfileRefreshInterval != 0 {
		cfg.ProfileRefreshInterval = ec.ProfileRefreshInterval
	}
}
