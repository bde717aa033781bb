// Package config loads the ledger host configuration from defaults, an
// optional YAML file, ATELIER_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"Atelier/internal/registry"
	"Atelier/internal/tracing"
)

// EnvPrefix is prepended to every environment override, e.g. ATELIER_DATA_DIR.
const EnvPrefix = "ATELIER"

// Config holds the host configuration.
type Config struct {
	// DataDir is the pebble directory holding all ledger state.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Collection CollectionConfig `mapstructure:"collection" yaml:"collection"`
	Tracing    tracing.Config   `mapstructure:"tracing" yaml:"tracing"`
}

// CollectionConfig names the collection.
type CollectionConfig struct {
	Name   string `mapstructure:"name" yaml:"name"`
	Symbol string `mapstructure:"symbol" yaml:"symbol"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		DataDir:  "./data",
		LogLevel: "info",
		Collection: CollectionConfig{
			Name:   registry.DefaultName,
			Symbol: registry.DefaultSymbol,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// SetDefaults registers Defaults on v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("collection.name", d.Collection.Name)
	v.SetDefault("collection.symbol", d.Collection.Symbol)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load resolves the configuration into v and decodes it. If cfgFile is empty
// the file is looked up as ./atelier.yaml, then
// ~/.config/atelier/config.yaml; a missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return Config{}, fmt.Errorf("config file:\n%w", err)
		}
		v.SetConfigFile(cfgFile)
	} else if _, err := os.Stat("atelier.yaml"); err == nil {
		v.SetConfigFile("atelier.yaml")
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "atelier"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config:\n%w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config:\n%w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks values viper cannot type-check.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout", "file", "otlp":
	default:
		return fmt.Errorf("tracing.exporter: unsupported value %q", c.Tracing.Exporter)
	}

	if c.Tracing.Exporter == "file" && c.Tracing.Enabled && c.Tracing.FilePath == "" {
		return fmt.Errorf("tracing.file_path is required for the file exporter")
	}

	if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be within (0, 1], got %v", c.Tracing.SampleRate)
	}

	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level: unknown level %q", s)
	}
}
