// Package config loads stripclass settings from a file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. STRIPCLASS_OUTPUT_SUFFIX.
const EnvPrefix = "STRIPCLASS"

// Config holds all configuration for the application.
type Config struct {
	Output  OutputConfig  `mapstructure:"output"`
	Batch   BatchConfig   `mapstructure:"batch"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
	Codec   CodecConfig   `mapstructure:"codec"`
}

// OutputConfig controls where rewritten classes go.
type OutputConfig struct {
	// Suffix is appended to the input path to name the output.
	Suffix string `mapstructure:"suffix"`
	// Compress is none, gzip or zstd.
	Compress string        `mapstructure:"compress"`
	Storage  StorageConfig `mapstructure:"storage"`
}

// StorageConfig holds output sink configuration.
type StorageConfig struct {
	Type string `mapstructure:"type"` // local or cos
	// LocalPath roots local output. Empty writes next to each input.
	LocalPath string `mapstructure:"local_path"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"` // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"` // e.g., "https" or "http"
	Prefix    string `mapstructure:"prefix"` // object key prefix
}

// BatchConfig holds settings for processing many classes at once.
type BatchConfig struct {
	Workers int      `mapstructure:"workers"`
	Include []string `mapstructure:"include"`
	Exclude []string `mapstructure:"exclude"`
	SkipJDK bool     `mapstructure:"skip_jdk"`
}

// HistoryConfig holds the run history database configuration.
type HistoryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Type     string `mapstructure:"type"` // sqlite, mysql or postgres
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
	Tracing  bool   `mapstructure:"tracing"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// OutputPath is a log file. Empty logs to stderr.
	OutputPath string `mapstructure:"output_path"`
}

// CodecConfig tunes the class file codec.
type CodecConfig struct {
	// ByteOrder is auto, big or little.
	ByteOrder string `mapstructure:"byte_order"`
	// Verify checks every pool reference after compaction.
	Verify bool `mapstructure:"verify"`
}

// Load reads configuration from configPath, or from stripclass.yaml in the
// standard locations when configPath is empty. A missing file is not an
// error; defaults and environment overrides still apply.
func Load(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("stripclass")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".stripclass"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromReader loads configuration from content (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return unmarshal(v)
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("output.suffix", ".alt")
	v.SetDefault("output.compress", "none")
	v.SetDefault("output.storage.type", "local")
	v.SetDefault("output.storage.local_path", "")
	v.SetDefault("output.storage.bucket", "")
	v.SetDefault("output.storage.region", "")
	v.SetDefault("output.storage.secret_id", "")
	v.SetDefault("output.storage.secret_key", "")
	v.SetDefault("output.storage.domain", "myqcloud.com")
	v.SetDefault("output.storage.scheme", "https")
	v.SetDefault("output.storage.prefix", "")

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.include", []string{})
	v.SetDefault("batch.exclude", []string{})
	v.SetDefault("batch.skip_jdk", false)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.type", "sqlite")
	v.SetDefault("history.path", "stripclass.db")
	v.SetDefault("history.host", "localhost")
	v.SetDefault("history.port", 0)
	v.SetDefault("history.database", "stripclass")
	v.SetDefault("history.user", "")
	v.SetDefault("history.password", "")
	v.SetDefault("history.max_conns", 4)
	v.SetDefault("history.tracing", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")

	v.SetDefault("codec.byte_order", "auto")
	v.SetDefault("codec.verify", false)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output.Suffix == "" {
		return fmt.Errorf("output suffix is required")
	}
	switch strings.ToLower(c.Output.Compress) {
	case "", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("unsupported output compression: %s", c.Output.Compress)
	}
	switch c.Output.Storage.Type {
	case "", "local", "cos":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Output.Storage.Type)
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1")
	}

	if c.History.Enabled {
		switch c.History.Type {
		case "sqlite":
			if c.History.Path == "" {
				return fmt.Errorf("history path is required for sqlite")
			}
		case "mysql", "postgres":
			if c.History.Host == "" {
				return fmt.Errorf("history host is required for %s", c.History.Type)
			}
		default:
			return fmt.Errorf("unsupported history database type: %s", c.History.Type)
		}
	}

	switch strings.ToLower(c.Codec.ByteOrder) {
	case "", "auto", "big", "little":
	default:
		return fmt.Errorf("unsupported byte order: %s", c.Codec.ByteOrder)
	}

	return nil
}

// OutputPath returns the output name for input.
func (c *Config) OutputPath(input string) string {
	return input + c.Output.Suffix
}
