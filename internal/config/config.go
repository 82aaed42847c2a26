package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/juev/envelope/internal/include"
)

const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

type LogConfig struct {
	Level string `yaml:"level"`
}

type LimitsConfig struct {
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
	MaxIncludeDepth  int   `yaml:"max_include_depth"`
}

type Config struct {
	Journal      string       `yaml:"journal"`
	Currency     string       `yaml:"currency"`
	Format       string       `yaml:"format"`
	NumberFormat string       `yaml:"number_format"`
	Log          LogConfig    `yaml:"log"`
	Limits       LimitsConfig `yaml:"limits"`
}

func Default() Config {
	limits := include.DefaultLimits()
	return Config{
		Format:       FormatTable,
		NumberFormat: "1,000.00",
		Log:          LogConfig{Level: "info"},
		Limits: LimitsConfig{
			MaxFileSizeBytes: limits.MaxFileSizeBytes,
			MaxIncludeDepth:  limits.MaxIncludeDepth,
		},
	}
}

// Normalize replaces empty or non-positive values with defaults.
func Normalize(c Config) Config {
	defaults := Default()
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "" {
		c.Format = defaults.Format
	}
	if c.NumberFormat == "" {
		c.NumberFormat = defaults.NumberFormat
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Limits.MaxFileSizeBytes <= 0 {
		c.Limits.MaxFileSizeBytes = defaults.Limits.MaxFileSizeBytes
	}
	if c.Limits.MaxIncludeDepth <= 0 {
		c.Limits.MaxIncludeDepth = defaults.Limits.MaxIncludeDepth
	}
	c.Journal = expandHome(c.Journal)
	return c
}

func (c Config) Validate() error {
	switch c.Format {
	case FormatTable, FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Currency != "" && len(c.Currency) != 3 {
		return fmt.Errorf("currency %q is not a 3-letter code", c.Currency)
	}
	return nil
}

func (c Config) LogLevel() (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

func (c Config) IncludeLimits() include.Limits {
	return include.Limits{
		MaxFileSizeBytes: c.Limits.MaxFileSizeBytes,
		MaxIncludeDepth:  c.Limits.MaxIncludeDepth,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/envelope/config.yaml or its platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "envelope", "config.yaml")
}

// Load reads the YAML file at path. An empty path reads DefaultPath and
// tolerates it being absent.
func Load(path string) (Config, error) {
	optional := path == ""
	if optional {
		path = DefaultPath()
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg = Normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
