// Package config loads the command-line tool's settings from FEEDLY_*
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven configuration of cmd/feedly.
type Config struct {
	ClientID     string `env:"CLIENT_ID,required,notEmpty"`
	ClientSecret string `env:"CLIENT_SECRET,required,notEmpty"`
	RedirectURI  string `env:"REDIRECT_URI"  envDefault:"http://localhost:8080/callback"`
	Scope        string `env:"SCOPE"         envDefault:"https://cloud.feedly.com/subscriptions"`
	BaseURL      string `env:"BASE_URL"      envDefault:"https://cloud.feedly.com/v3"`
	UserAgent    string `env:"USER_AGENT"    envDefault:"go-feedly-api-wrapper/0.1"`

	DBPath   string `env:"DB_PATH"   envDefault:"feedly.sqlite"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Timeout           time.Duration `env:"TIMEOUT"             envDefault:"30s"`
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE" envDefault:"60"`
	Burst             int           `env:"BURST"               envDefault:"5"`

	// WatchSchedule is a standard five-field cron expression.
	WatchSchedule string `env:"WATCH_SCHEDULE" envDefault:"*/15 * * * *"`
}

// Prefix is prepended to every variable name.
const Prefix = "FEEDLY_"

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(environment map[string]string) (Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: environment})
}

func load(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.RequestsPerMinute <= 0 {
		return Config{}, fmt.Errorf("%sREQUESTS_PER_MINUTE must be positive, got %d", Prefix, cfg.RequestsPerMinute)
	}
	if cfg.Burst <= 0 {
		return Config{}, fmt.Errorf("%sBURST must be positive, got %d", Prefix, cfg.Burst)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level maps LogLevel onto a slog level.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("%sLOG_LEVEL: %w", Prefix, err)
	}
	return level, nil
}
