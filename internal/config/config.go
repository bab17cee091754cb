// Package config loads waypoint settings from defaults, an optional YAML
// file and WAYPOINT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. WAYPOINT_MAP_API_KEY.
const EnvPrefix = "WAYPOINT"

// Config is the full set of runtime settings.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Map      MapConfig      `mapstructure:"map"`
	Store    StoreConfig    `mapstructure:"store"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Nav      NavConfig      `mapstructure:"nav"`
	Log      LogConfig      `mapstructure:"log"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	// Path is the database file. Empty means <repo root>/.waypoint/waypoint.db.
	Path string `mapstructure:"path"`
}

// MapConfig configures the map provider.
type MapConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	RestrictTo string `mapstructure:"restrict_to"`
	Disabled   bool   `mapstructure:"disabled"`
}

// StoreConfig tunes store access.
type StoreConfig struct {
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// DispatchConfig tunes the query dispatcher.
type DispatchConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// NavConfig sets navigation defaults.
type NavConfig struct {
	Table string `mapstructure:"table"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults.
const (
	DefaultMapBaseURL   = "https://maps.googleapis.com/maps/api/staticmap"
	DefaultRetryBackoff = 100 * time.Millisecond
	DefaultPageSize     = 50
	DefaultTable        = "locations"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "")
	v.SetDefault("map.api_key", "")
	v.SetDefault("map.base_url", DefaultMapBaseURL)
	v.SetDefault("map.restrict_to", "")
	v.SetDefault("map.disabled", false)
	v.SetDefault("store.retry_backoff", DefaultRetryBackoff)
	v.SetDefault("dispatch.page_size", DefaultPageSize)
	v.SetDefault("nav.table", DefaultTable)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}

// Default returns the configuration used when no file or env is present.
func Default() *Config {
	return &Config{
		Map:      MapConfig{BaseURL: DefaultMapBaseURL},
		Store:    StoreConfig{RetryBackoff: DefaultRetryBackoff},
		Dispatch: DispatchConfig{PageSize: DefaultPageSize},
		Nav:      NavConfig{Table: DefaultTable},
		Log:      LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

// Load reads configuration. When path is empty, waypoint.yaml is looked up
// in the working directory and its absence is not an error. An explicit
// path must exist. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("waypoint")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks settings required at startup. A missing map key is a
// ConfigMissing error unless the map provider is disabled.
func (c *Config) Validate() error {
	if !c.Map.Disabled && strings.TrimSpace(c.Map.APIKey) == "" {
		return errs.New(errs.ConfigMissing, "validate config",
			"map.api_key is not set (set "+EnvPrefix+"_MAP_API_KEY or map.disabled)")
	}
	if _, err := store.ParseTable(c.Nav.Table); err != nil {
		return fmt.Errorf("nav.table: %w", err)
	}
	if c.Dispatch.PageSize <= 0 {
		return fmt.Errorf("dispatch.page_size must be positive, got %d", c.Dispatch.PageSize)
	}
	if c.Store.RetryBackoff < 0 {
		return fmt.Errorf("store.retry_backoff must not be negative, got %s", c.Store.RetryBackoff)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// Warnings returns non-fatal configuration concerns to log at startup.
func (c *Config) Warnings() []string {
	var w []string
	if !c.Map.Disabled && c.Map.RestrictTo == "" {
		w = append(w, "map.restrict_to is empty; restrict the map API key to this application at the provider")
	}
	return w
}
