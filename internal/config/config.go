// Package config loads the service configuration once at startup.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/thiagokokada/altcos-graph/internal/graph"
	"github.com/thiagokokada/altcos-graph/internal/store"
	"github.com/thiagokokada/altcos-graph/internal/store/backend"
)

// EnvPrefix prefixes every environment variable except STREAMS_ROOT, which
// keeps the name the build tooling already exports.
const EnvPrefix = "ALTCOS_GRAPH"

const (
	KeyStreamsRoot     = "streams_root"
	KeyListen          = "listen"
	KeyBackend         = "backend"
	KeyGraphMode       = "graph_mode"
	KeySkipEdges       = "skip_edges"
	KeyMinSkip         = "min_skip"
	KeyWatch           = "watch"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyShutdownTimeout = "shutdown_timeout"
)

type Config struct {
	StreamsRoot     string        `mapstructure:"streams_root" validate:"required,dir"`
	Listen          string        `mapstructure:"listen" validate:"required"`
	Backend         string        `mapstructure:"backend" validate:"required"`
	GraphMode       string        `mapstructure:"graph_mode" validate:"required"`
	SkipEdges       bool          `mapstructure:"skip_edges"`
	MinSkip         int           `mapstructure:"min_skip" validate:"gte=2"`
	Watch           bool          `mapstructure:"watch"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=text json"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// SetDefaults registers defaults and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyBackend, string(backend.KindOSTree))
	v.SetDefault(KeyGraphMode, string(store.ModeBare))
	v.SetDefault(KeySkipEdges, true)
	v.SetDefault(KeyMinSkip, 2)
	v.SetDefault(KeyWatch, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyStreamsRoot, "STREAMS_ROOT", EnvPrefix+"_STREAMS_ROOT")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := backend.ParseKind(cfg.Backend); err != nil {
		return nil, fmt.Errorf("invalid config: %s: %w", KeyBackend, err)
	}
	if _, err := store.ParseMode(cfg.GraphMode); err != nil {
		return nil, fmt.Errorf("invalid config: %s: %w", KeyGraphMode, err)
	}
	return &cfg, nil
}

func (c *Config) StoreBackend() backend.Kind { return backend.Kind(c.Backend) }
func (c *Config) StoreMode() store.Mode      { return store.Mode(c.GraphMode) }

func (c *Config) Policy() graph.Policy {
	return graph.Policy{SkipEdges: c.SkipEdges, MinSkip: c.MinSkip}
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
