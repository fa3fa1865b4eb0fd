// Package config loads the engine's settings from a config file, environment
// variables, and built-in defaults, modeled on datallboy-GoNZB's
// viper.Load pattern and retargeted at xdg.ConfigHome for the default
// config file location.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const appName = "hlsdl"

// Config is the process-wide configuration, independent of the singleton
// Settings record the store persists.
type Config struct {
	MaxConcurrentDownloads int    `mapstructure:"max_concurrent_downloads"`
	DefaultThreads         int    `mapstructure:"default_threads"`
	OutputDir              string `mapstructure:"output_dir"`
	DatabasePath           string `mapstructure:"database_path"`
	LogLevel               string `mapstructure:"log_level"`
	MuxerBinary            string `mapstructure:"muxer_binary"`
}

// DefaultPath returns the XDG-standard config file location used when no
// explicit path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// Load reads configuration from path (or DefaultPath() when empty).
// Environment variables (prefixed HLSDL_) take precedence over the file, and
// built-in defaults fill in keys neither sets. A missing config file is not
// an error: defaults and environment apply.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	v.SetDefault("max_concurrent_downloads", 3)
	v.SetDefault("default_threads", 4)
	v.SetDefault("output_dir", filepath.Join(xdg.DataHome, appName, "downloads"))
	v.SetDefault("database_path", filepath.Join(xdg.DataHome, appName, "hlsdl.db"))
	v.SetDefault("log_level", "info")
	v.SetDefault("muxer_binary", "")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		// file absent: fall through with defaults + env only.
	}

	v.SetEnvPrefix("HLSDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
