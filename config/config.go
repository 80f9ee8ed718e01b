// Package config loads paxcalc settings from built-in defaults, an
// optional TOML file, and environment variables, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/joeminicucci/paxdei-crafting-bot/calculator"
	"github.com/joeminicucci/paxdei-crafting-bot/gamingtools"
	"github.com/joeminicucci/paxdei-crafting-bot/recipe"
)

// DefaultPath is the config file consulted when no explicit path is
// given.
const DefaultPath = "paxcalc.toml"

// Config holds every tunable shared by the CLI and the bot.
type Config struct {
	BaseURL            string `toml:"base_url"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
	CacheSize          int    `toml:"cache_size"`
	MaxDepth           int    `toml:"max_depth"`
	MySQLDSN           string `toml:"mysql_dsn"`
	LogLevel           string `toml:"log_level"`

	// Bot credentials come from the environment only; they have no
	// business in a config file.
	SlackBotToken string `toml:"-"`
	SlackAppToken string `toml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BaseURL:            gamingtools.DefaultBaseURL,
		HTTPTimeoutSeconds: int(gamingtools.DefaultTimeout / time.Second),
		CacheSize:          recipe.DefaultCacheSize,
		MaxDepth:           calculator.DefaultMaxDepth,
		LogLevel:           "info",
	}
}

// Load builds the configuration. The TOML file at path overlays the
// defaults and the environment overlays both; a missing file is not an
// error. An empty path consults DefaultPath.
func Load(path string) (Config, error) {
	// A .env in the working directory feeds the environment overlay;
	// absence is fine.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err == nil {
		if terr := toml.Unmarshal(data, &cfg); terr != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, terr)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PAXCALC_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	for _, e := range []struct {
		name string
		dst  *int
	}{
		{"PAXCALC_HTTP_TIMEOUT", &c.HTTPTimeoutSeconds},
		{"PAXCALC_CACHE_SIZE", &c.CacheSize},
		{"PAXCALC_MAX_DEPTH", &c.MaxDepth},
	} {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
		*e.dst = n
	}
	if v := os.Getenv("PAXCALC_MYSQL_DSN"); v != "" {
		c.MySQLDSN = v
	}
	if v := os.Getenv("PAXCALC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	c.SlackAppToken = os.Getenv("SLACK_APP_TOKEN")
	return nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}
	if c.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("http_timeout_seconds must be at least 1, got %d", c.HTTPTimeoutSeconds)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be at least 1, got %d", c.CacheSize)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", c.MaxDepth)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// HTTPTimeout returns the request timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// SlogLevel maps the configured level name onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
}
