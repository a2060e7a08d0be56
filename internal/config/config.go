package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from defaults, an optional
// YAML file named by TRANSITDB_CONFIG, and TRANSITDB_* environment variables, in
// that order.
type Config struct {
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	DBPath      string `yaml:"db_path" validate:"required"`
	FeedDir     string `yaml:"feed_dir" validate:"required"`
	FeedURL     string `yaml:"feed_url" validate:"omitempty,url"`
	FeedVersion int    `yaml:"feed_version" validate:"min=0"`
	Timezone    string `yaml:"timezone" validate:"required,timezone"`

	AlertsURL      string        `yaml:"alerts_url" validate:"omitempty,url"`
	AlertsInterval time.Duration `yaml:"alerts_interval" validate:"min=0"`

	CacheTTL        time.Duration `yaml:"cache_ttl" validate:"min=0"`
	UpcomingMinutes int           `yaml:"upcoming_minutes" validate:"min=1,max=1440"`

	SentryDSN string `yaml:"sentry_dsn"`
	Env       string `yaml:"env" validate:"required"`
	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:            8080,
		DBPath:          "./transit.db",
		FeedDir:         "./data",
		Timezone:        "America/Toronto",
		AlertsInterval:  time.Minute,
		CacheTTL:        30 * time.Second,
		UpcomingMinutes: 15,
		Env:             "development",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads configuration with defaults, then validates it.
func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("TRANSITDB_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envInt("TRANSITDB_PORT", c.Port)
	c.DBPath = envStr("TRANSITDB_DB_PATH", c.DBPath)
	c.FeedDir = envStr("TRANSITDB_FEED_DIR", c.FeedDir)
	c.FeedURL = envStr("TRANSITDB_FEED_URL", c.FeedURL)
	c.FeedVersion = envInt("TRANSITDB_FEED_VERSION", c.FeedVersion)
	c.Timezone = envStr("TRANSITDB_TIMEZONE", c.Timezone)
	c.AlertsURL = envStr("TRANSITDB_ALERTS_URL", c.AlertsURL)
	c.AlertsInterval = envDuration("TRANSITDB_ALERTS_INTERVAL", c.AlertsInterval)
	c.CacheTTL = envDuration("TRANSITDB_CACHE_TTL", c.CacheTTL)
	c.UpcomingMinutes = envInt("TRANSITDB_UPCOMING_MINUTES", c.UpcomingMinutes)
	c.SentryDSN = envStr("TRANSITDB_SENTRY_DSN", c.SentryDSN)
	c.Env = envStr("TRANSITDB_ENV", c.Env)
	c.LogLevel = envStr("TRANSITDB_LOG_LEVEL", c.LogLevel)
	c.LogFormat = envStr("TRANSITDB_LOG_FORMAT", c.LogFormat)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
