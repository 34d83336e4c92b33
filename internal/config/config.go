// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"blinkbreak/internal/logging"
)

// AppName names the per-user configuration directory.
const AppName = "blinkbreak"

// Prefix is the environment variable prefix.
const Prefix = "BLINKBREAK"

// Config holds process configuration. Every field is read from
// BLINKBREAK_<tag>.
type Config struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEV" default:"false"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	StoreDSN    string `envconfig:"STORE_DSN"`

	SettingsPath string        `envconfig:"SETTINGS_PATH"`
	MetricsAddr  string        `envconfig:"METRICS_ADDR"`
	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"100ms"`
}

// Load reads an optional .env file at dotenv, then the environment.
// Variables already set in the environment win over the file.
func Load(dotenv string) (*Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Logger returns the logging configuration.
func (cfg *Config) Logger() logging.Config {
	return logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
	}
}

func (cfg *Config) resolvePaths() error {
	if cfg.SettingsPath != "" && (cfg.StoreDSN != "" || cfg.StoreDriver != "sqlite") {
		return nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return fmt.Errorf("resolve user config dir: %w", err)
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = filepath.Join(configDir, AppName, "settings.yaml")
	}
	if cfg.StoreDSN == "" && cfg.StoreDriver == "sqlite" {
		cfg.StoreDSN = filepath.Join(configDir, AppName, "history.db")
	}
	return nil
}
