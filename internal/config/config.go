// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process-wide configuration. It is resolved once at
// startup (defaults < config file < environment) and handed to the
// subcommand handlers as already-resolved state.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	App     AppConfig     `mapstructure:"app" yaml:"app"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ScanConfig tunes the scanning engine. Per-invocation flags override
// these values through the scan subcommand's own parser.
type ScanConfig struct {
	Jobs           int           `mapstructure:"jobs" yaml:"jobs"`
	MaxTargetBytes int64         `mapstructure:"max_target_bytes" yaml:"max_target_bytes"`
	Exclude        []string      `mapstructure:"exclude" yaml:"exclude"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AppConfig points at the hosted app used by ci, login, and telemetry.
type AppConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// MetricsConfig controls the anonymous usage telemetry recorder.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "semgrep")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Scan --
	v.SetDefault("scan.jobs", 0) // 0 means "use all CPUs"
	v.SetDefault("scan.max_target_bytes", 1_000_000)
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.timeout", "30m")

	// -- App --
	v.SetDefault("app.url", "https://semgrep.dev")

	// -- Metrics --
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.endpoint", "https://metrics.semgrep.dev")
}

// New resolves the configuration from defaults, an optional .semgrep.yaml
// in the working directory, and SEMGREP_* environment variables.
func New() (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.AddConfigPath(".")
	v.SetConfigName(".semgrep")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SEMGREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}
	return NewFromViper(v)
}

// NewFromViper unmarshals and validates a configuration from a prepared
// viper instance. Split out of New for tests.
func NewFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Scan.Jobs < 0 {
		return fmt.Errorf("scan.jobs must not be negative")
	}
	if c.Scan.MaxTargetBytes <= 0 {
		return fmt.Errorf("scan.max_target_bytes must be a positive integer")
	}
	if c.App.URL == "" {
		return fmt.Errorf("app.url is a required configuration field")
	}
	if c.Metrics.Enabled && c.Metrics.Endpoint == "" {
		return fmt.Errorf("metrics.endpoint is required when metrics are enabled")
	}
	return nil
}
