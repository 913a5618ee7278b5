// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings.
type Config struct {
	Port            string
	GRPCPort        string
	MMDBPath        string
	MMDBWatch       bool
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
}

// ErrMissingMMDBPath is returned when MMDB_PATH is not set.
var ErrMissingMMDBPath = errors.New("MMDB_PATH environment variable is required")

// Load reads settings from environment variables.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("port", "8080")
	v.SetDefault("grpc_port", "")
	v.SetDefault("mmdb_path", "")
	v.SetDefault("mmdb_watch", true)
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.AutomaticEnv()

	cfg := &Config{
		Port:            v.GetString("port"),
		GRPCPort:        v.GetString("grpc_port"),
		MMDBPath:        v.GetString("mmdb_path"),
		MMDBWatch:       v.GetBool("mmdb_watch"),
		LogLevel:        ParseLogLevel(v.GetString("log_level")),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
	}

	if cfg.MMDBPath == "" {
		return nil, ErrMissingMMDBPath
	}
	if cfg.Port == "" {
		return nil, errors.New("PORT must not be empty")
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", cfg.ShutdownTimeout)
	}
	return cfg, nil
}

// ParseLogLevel converts a string log level to slog.Level. Unknown values map to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
