// Package config loads runtime configuration for the mxkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables prefixed MXKEEPER_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the default Matrix homeserver
//	-d string   path to the local SQLite database
//	-t int      homeserver request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "home_server_url": "https://matrix.example.org",
//	  "database_path": "mxkeeper.db",
//	  "request_timeout": "30s",
//	  "profile_refresh_interval": "1m"
//	}
package config
