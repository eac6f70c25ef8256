package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/loykin/acqsim/internal/acquisition"
	"github.com/loykin/acqsim/internal/autotick"
	"github.com/loykin/acqsim/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. ACQSIM_SERVER_LISTEN.
const EnvPrefix = "ACQSIM"

// Supported HTTP frameworks for serving the router.
const (
	FrameworkGin  = "gin"
	FrameworkEcho = "echo"
)

// Config represents the top-level TOML structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Log       logger.Config   `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	AutoTick  AutoTickConfig  `mapstructure:"autotick"`
	History   HistoryConfig   `mapstructure:"history"`
}

type ServerConfig struct {
	Listen    string `mapstructure:"listen"`
	BasePath  string `mapstructure:"base_path"`
	Framework string `mapstructure:"framework"`
}

type SimulatorConfig struct {
	DefaultRunID     string `mapstructure:"default_run_id"`
	PlaceholderRunID string `mapstructure:"placeholder_run_id"`
	// StreamBuffer is the watch channel capacity; negative means unbuffered.
	StreamBuffer int `mapstructure:"stream_buffer"`
	// Seed makes draws reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type AutoTickConfig struct {
	Enabled bool `mapstructure:"enabled"`

	autotick.Config `mapstructure:",squash"`
}

type HistoryConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	DSNs    []string `mapstructure:"dsns"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.framework", FrameworkGin)

	v.SetDefault("simulator.default_run_id", acquisition.DefaultRunID)
	v.SetDefault("simulator.placeholder_run_id", acquisition.DefaultPlaceholderRunID)
	v.SetDefault("simulator.stream_buffer", acquisition.DefaultStreamBuffer)
	v.SetDefault("simulator.seed", 0)

	v.SetDefault("log.level", logger.LevelInfo)
	v.SetDefault("log.format", logger.FormatText)
	v.SetDefault("log.color", false)
	v.SetDefault("log.timestamps", true)
	v.SetDefault("log.source", false)
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("log.file.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("log.file.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("log.file.compress", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9090")

	v.SetDefault("autotick.enabled", false)
	v.SetDefault("autotick.schedule", "@every 2s")
	v.SetDefault("autotick.runs", []string{})

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dsns", []string{})
}

// Load reads path (TOML) when non-empty, applies ACQSIM_* environment
// overrides on top and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints. Disabled sections are not
// checked beyond their defaults.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Listen) == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	switch strings.ToLower(c.Server.Framework) {
	case FrameworkGin, FrameworkEcho:
	default:
		errs = append(errs, fmt.Errorf("server.framework %q is not one of gin, echo", c.Server.Framework))
	}

	if c.Simulator.DefaultRunID == "" {
		errs = append(errs, errors.New("simulator.default_run_id is required"))
	} else if err := acquisition.ValidateRunID(c.Simulator.DefaultRunID); err != nil {
		errs = append(errs, fmt.Errorf("simulator.default_run_id: %w", err))
	}
	if err := acquisition.ValidateRunID(c.Simulator.PlaceholderRunID); err != nil {
		errs = append(errs, fmt.Errorf("simulator.placeholder_run_id: %w", err))
	}

	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Listen) == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}

	if c.AutoTick.Enabled {
		if err := c.AutoTick.Config.Validate(); err != nil {
			errs = append(errs, err)
		}
		for _, r := range c.AutoTick.Runs {
			if err := acquisition.ValidateRunID(r); err != nil {
				errs = append(errs, fmt.Errorf("autotick.runs: %w", err))
			}
		}
	}

	if c.History.Enabled && len(c.History.DSNs) == 0 {
		errs = append(errs, errors.New("history.dsns is required when history is enabled"))
	}

	return errors.Join(errs...)
}
