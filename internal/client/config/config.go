package config

import (
	"context"
	"time"
)

// Config holds runtime settings for the mxkeeper CLI.
//
// Fields:
//   - HomeServerURL: base URL of the homeserver offered as the default when
//     adding or registering an account.
//   - DatabasePath: location of the local SQLite database.
//   - RequestTimeout: per-request timeout for homeserver calls.
//   - ProfileRefreshInterval: how often remote profiles are re-fetched.
type Config struct {
	HomeServerURL          string
	DatabasePath           string
	RequestTimeout         time.Duration
	ProfileRefreshInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.HomeServerURL = "https://matrix.org"
	c.DatabasePath = "mxkeeper.db"
	c.RequestTimeout = 30 * time.Second
	c.ProfileRefreshInterval = time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), environment variables and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig(ctx context.Context) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(ctx, cfg)
	parseFlags(cfg)
	return cfg
}
