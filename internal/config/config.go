package config

import "time"

// Config holds runtime settings for the IronLedger client.
//
// Fields:
//   - ServerBaseURL: base URL of the backend REST API (including /api/v1).
//   - DatabasePath: path (or DSN) of the local SQLite mirror.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - HTTPTimeout: per-request timeout for the API client.
//   - WorkoutPullWindowDays: trailing window of workouts fetched by a pull.
//   - MealPullWindowDays: trailing window of meals fetched by a pull.
type Config struct {
	ServerBaseURL         string
	DatabasePath          string
	OnlineCheckInterval   time.Duration
	HTTPTimeout           time.Duration
	WorkoutPullWindowDays int
	MealPullWindowDays    int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:8000/api/v1"
	c.DatabasePath = "ironledger.db"
	c.OnlineCheckInterval = 15 * time.Second
	c.HTTPTimeout = 10 * time.Second
	c.WorkoutPullWindowDays = 30
	c.MealPullWindowDays = 7
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
