// Package config loads runner settings from a file, the environment and
// defaults, in that order of precedence, and validates the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/dshills/isotask/worker"
)

const envPrefix = "ISOTASK"

// Config is the full runner configuration.
type Config struct {
	Worker WorkerConfig `mapstructure:"worker"`
	Log    LogConfig    `mapstructure:"log"`
}

// WorkerConfig tunes the interpreter behind each worker channel. Zero values
// keep the interpreter defaults.
type WorkerConfig struct {
	RegistrySize  int `mapstructure:"registry_size" validate:"min=0"`
	CallStackSize int `mapstructure:"call_stack_size" validate:"min=0"`
}

// LogConfig controls the runner's logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// Options translates the worker section into channel options.
func (c *WorkerConfig) Options() []worker.Option {
	var opts []worker.Option
	if c.RegistrySize > 0 {
		opts = append(opts, worker.WithRegistrySize(c.RegistrySize))
	}
	if c.CallStackSize > 0 {
		opts = append(opts, worker.WithCallStackSize(c.CallStackSize))
	}
	return opts
}

// Load reads configuration from the given file. With an empty path it falls
// back to isotask.yaml in the working directory and treats a missing file as
// defaults-only. ISOTASK_* environment variables override file values.
func Load(path string) (*Config, error) {
	v, err := buildViper(path)
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadAndWatch behaves like Load and additionally re-reads the file on every
// change, invoking onChange with each configuration that passes validation.
// Changes that fail to load or validate are dropped and the previous
// configuration stays in effect.
func LoadAndWatch(path string, onChange func(*Config)) (*Config, error) {
	if path == "" {
		return nil, errors.New("config watching requires an explicit file path")
	}
	v, err := buildViper(path)
	if err != nil {
		return nil, err
	}
	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	v.OnConfigChange(func(fsnotify.Event) {
		fresh, err := unmarshal(v)
		if err != nil {
			return
		}
		onChange(fresh)
	})
	v.WatchConfig()
	return cfg, nil
}

func buildViper(path string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("worker.registry_size", 0)
	v.SetDefault("worker.call_stack_size", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"worker.registry_size",
		"worker.call_stack_size",
		"log.level",
		"log.format",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("isotask")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds a logger from the log section, writing to w.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
