// Package config loads simulator configuration from YAML and OPCG_
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig holds the effect engine limits.
type EngineConfig struct {
	MaxTriggerSweeps int  `mapstructure:"max_trigger_sweeps"`
	MaxStackSteps    int  `mapstructure:"max_stack_steps"`
	TargetCache      bool `mapstructure:"target_cache"`
	LabelCacheSize   int  `mapstructure:"label_cache_size"`
}

// CatalogConfig points at the card catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// ScenarioConfig points at the scenario to run. A non-empty ReplayDir saves
// each run as a gzipped replay there.
type ScenarioConfig struct {
	Path      string `mapstructure:"path"`
	ReplayDir string `mapstructure:"replay_dir"`
}

// Load reads the configuration file at path, if any, over the defaults.
// Environment variables such as OPCG_ENGINE_MAX_STACK_STEPS override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("OPCG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("engine.max_trigger_sweeps", 100)
	v.SetDefault("engine.max_stack_steps", 1000)
	v.SetDefault("engine.target_cache", true)
	v.SetDefault("engine.label_cache_size", 512)

	v.SetDefault("catalog.path", "data/cards.yaml")
	v.SetDefault("scenario.path", "")
	v.SetDefault("scenario.replay_dir", "")
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Engine.MaxTriggerSweeps <= 0 {
		return fmt.Errorf("engine.max_trigger_sweeps must be positive")
	}
	if c.Engine.MaxStackSteps <= 0 {
		return fmt.Errorf("engine.max_stack_steps must be positive")
	}
	if c.Engine.LabelCacheSize <= 0 {
		return fmt.Errorf("engine.label_cache_size must be positive")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	return nil
}
