package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/faddenpatrick/ironledger/internal/flagx"
	"github.com/faddenpatrick/ironledger/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "15s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerBaseURL         string         `json:"server_base_url"`
	DatabasePath          string         `json:"database_path"`
	OnlineCheckInterval   timex.Duration `json:"online_check_interval"`
	HTTPTimeout           timex.Duration `json:"http_timeout"`
	WorkoutPullWindowDays int            `json:"workout_pull_window_days"`
	MealPullWindowDays    int            `json:"meal_pull_window_days"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from the -c/-config flags (flagx.JsonConfigFlags);
// when absent, no JSON is loaded. Only fields present in the file override
// the defaults. Panics on read or unmarshal errors.
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

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = time.Duration(jc.OnlineCheckInterval.Duration)
	}
	if jc.HTTPTimeout.Duration != 0 {
		cfg.HTTPTimeout = time.Duration(jc.HTTPTimeout.Duration)
	}
	if jc.WorkoutPullWindowDays != 0 {
		cfg.WorkoutPullWindowDays = jc.WorkoutPullWindowDays
	}
	if jc.MealPullWindowDays != 0 {
		cfg.MealPullWindowDays = jc.MealPullWindowDays
	}
}
