package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/okatkov/mxkeeper/internal/flagx"
	"github.com/okatkov/mxkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	HomeServerURL          string         `json:"home_server_url"`
	DatabasePath           string         `json:"database_path"`
	RequestTimeout         timex.Duration `json:"request_timeout"`
	ProfileRefreshInterval timex.Duration `json:"profile_refresh_interval"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c / -config flags; with neither present no JSON is
// loaded. Fields absent from the file keep their earlier values. Panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.HomeServerURL != "" {
		cfg.HomeServerURL = jc.HomeServerURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.ProfileRefreshInterval.Duration != 0 {
		cfg.ProfileRefreshInterval = time.Duration(jc.ProfileRefreshInterval.Duration)
	}
}
