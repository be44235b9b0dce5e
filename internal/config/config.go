package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"fortdeps/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix prefixes environment overrides, e.g. FORTDEPS_SCAN_WORKERS.
const EnvPrefix = "FORTDEPS"

// Config is the contents of .fortdeps/config.json.
type Config struct {
	Version   int           `json:"version" mapstructure:"version"`
	Scan      ScanConfig    `json:"scan" mapstructure:"scan"`
	Cache     CacheConfig   `json:"cache" mapstructure:"cache"`
	Logging   LoggingConfig `json:"logging" mapstructure:"logging"`
	Intrinsic []string      `json:"intrinsic" mapstructure:"intrinsic"`
}

// ScanConfig controls the directory walk and the per-file reader.
type ScanConfig struct {
	Extensions       []string `json:"extensions" mapstructure:"extensions"`
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	DefaultOptions   string   `json:"defaultOptions" mapstructure:"defaultOptions"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	TimeoutMs        int      `json:"timeoutMs" mapstructure:"timeoutMs"`
	// Workers bounds concurrent file scans; 0 means one per CPU.
	Workers int `json:"workers" mapstructure:"workers"`
}

// CacheConfig controls the on-disk result cache and its in-process front.
type CacheConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	LRUSize int  `json:"lruSize" mapstructure:"lruSize"`
}

// LoggingConfig controls CLI output and the optional log file.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	// File mirrors CLI logs into .fortdeps/logs/fortdeps.log.
	File bool `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Scan: ScanConfig{
			Extensions:       []string{".f", ".for", ".F", ".f90", ".F90", ".f95", ".F95"},
			Ignore:           []string{".git", ".fortdeps", "build", "_build"},
			DefaultOptions:   "",
			MaxFileSizeBytes: 4 << 20,
			TimeoutMs:        60000,
			Workers:          0,
		},
		Cache: CacheConfig{
			Enabled: true,
			LRUSize: 4096,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
			File:   false,
		},
		Intrinsic: []string{},
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.ignore", d.Scan.Ignore)
	v.SetDefault("scan.defaultOptions", d.Scan.DefaultOptions)
	v.SetDefault("scan.maxFileSizeBytes", d.Scan.MaxFileSizeBytes)
	v.SetDefault("scan.timeoutMs", d.Scan.TimeoutMs)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.lruSize", d.Cache.LRUSize)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("intrinsic", d.Intrinsic)
}

// LoadConfig loads <root>/.fortdeps/config.json layered over the defaults,
// then applies FORTDEPS_* environment overrides. A missing file is not an error.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(paths.StateDir(root))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", paths.ConfigPath(root), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to <root>/.fortdeps/config.json.
func (c *Config) Save(root string) error {
	if _, err := paths.EnsureStateDir(root); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(paths.ConfigPath(root), append(data, '\n'), 0o644)
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return &ConfigError{Field: "scan.extensions", Message: fmt.Sprintf("%q must start with a dot", ext)}
		}
	}
	if c.Scan.MaxFileSizeBytes < 0 {
		return &ConfigError{Field: "scan.maxFileSizeBytes", Message: "must not be negative"}
	}
	if c.Scan.TimeoutMs < 0 {
		return &ConfigError{Field: "scan.timeoutMs", Message: "must not be negative"}
	}
	if c.Scan.Workers < 0 {
		return &ConfigError{Field: "scan.workers", Message: "must not be negative"}
	}
	if c.Cache.LRUSize < 0 {
		return &ConfigError{Field: "cache.lruSize", Message: "must not be negative"}
	}
	switch c.Logging.Format {
	case "human", "json", "yaml":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
