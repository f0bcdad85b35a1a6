// Package config loads chisel's startup settings with viper.
//
// Precedence (highest first): explicit flags bound by the CLI, CHISEL_*
// environment variables, the project's .chisel/config.yaml, the user's
// ~/.config/chisel/config.yaml, then the defaults below. Project-level
// values such as id_prefix live in the store's config table instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirName is the per-project directory holding the database and config.
const DirName = ".chisel"

// FileName is the yaml file read from DirName and the user config dir.
const FileName = "config.yaml"

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate the file so nested subdirectories of a project
	// still see its config.
	if path := findProjectConfig(); path != "" {
		v.SetConfigFile(path)
	} else if home, err := os.UserConfigDir(); err == nil {
		userPath := filepath.Join(home, "chisel", FileName)
		if _, err := os.Stat(userPath); err == nil {
			v.SetConfigFile(userPath)
		}
	}

	v.SetEnvPrefix("CHISEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("json", false)
	v.SetDefault("db", "")
	v.SetDefault("actor", defaultActor())

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.dolt.host", "127.0.0.1")
	v.SetDefault("storage.dolt.port", 3307)
	v.SetDefault("storage.dolt.user", "root")
	v.SetDefault("storage.dolt.password", "")
	v.SetDefault("storage.dolt.database", "chisel")
	v.SetDefault("storage.dolt.embedded", false)

	v.SetDefault("hooks.timeout", "300s")
	v.SetDefault("hooks.parallelism", 1)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "claude-haiku-4-5")
	v.SetDefault("ai.api-key", "")

	v.SetDefault("list.watch-debounce", "500ms")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.endpoint", "")
}

func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// findProjectConfig walks up from the working directory looking for
// .chisel/config.yaml. CHISEL_DIR short-circuits the search.
func findProjectConfig() string {
	if dir := os.Getenv("CHISEL_DIR"); dir != "" {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		path := filepath.Join(dir, DirName, FileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// ConfigFileUsed returns the yaml file that was loaded, if any.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a value for the rest of the process (used for flag values).
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// IsSet reports whether key has a value from any source other than defaults.
func IsSet(key string) bool {
	if v == nil {
		return false
	}
	return v.IsSet(key)
}

// AllSettings returns the merged settings as a flat dotted-key map.
func AllSettings() map[string]interface{} {
	out := map[string]interface{}{}
	if v == nil {
		return out
	}
	for _, key := range v.AllKeys() {
		out[key] = v.Get(key)
	}
	return out
}
