// Package config holds the viper-backed configuration singleton.
// Values are read once at startup; precedence is project
// .taskdeck/config.yaml, then ~/.config/td/config.yaml, then TD_* env vars
// over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the configuration singleton. Call once at startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// Walk up from CWD to find the project .taskdeck/config.yaml so
	// commands work from subdirectories.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".taskdeck", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// User config directory (~/.config/td/config.yaml).
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "td", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Env vars take precedence over the config file.
	// TD_STALE_TIMEOUT maps to "stale-timeout", and so on.
	v.SetEnvPrefix("TD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "")
	v.SetDefault("actor", "")
	v.SetDefault("json", false)
	v.SetDefault("socket", "")
	v.SetDefault("stale-timeout", "24h")
	v.SetDefault("sweep-interval", "")
	v.SetDefault("retry-budget", 5)
	v.SetDefault("slow-query-threshold", "100ms")
	v.SetDefault("request-timeout", "30s")
	v.SetDefault("max-conns", 64)
	v.SetDefault("event-buffer", 256)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// StaleTimeout returns the reservation expiry window.
func StaleTimeout() time.Duration {
	d := GetDuration("stale-timeout")
	if d <= 0 {
		d = 24 * time.Hour
	}
	return d
}

// SweepInterval returns the sweeper period. Unset or oversized values
// collapse to a quarter of the stale timeout so expiry detection never
// lags more than 25% past the deadline.
func SweepInterval() time.Duration {
	max := StaleTimeout() / 4
	d := GetDuration("sweep-interval")
	if d <= 0 || d > max {
		return max
	}
	return d
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value (flag precedence is applied by the
// CLI in PersistentPreRun).
func Set(key string, value any) {
	if v != nil {
		v.Set(key, value)
	}
}

// Actor resolves the acting identity: flag value, then config/env, then
// hostname.
func Actor(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if actor := GetString("actor"); actor != "" {
		return actor
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return "unknown"
}
