// Package config loads the clusterscope server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/clusterscope/internal/logging"
)

// Config is the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Health    HealthConfig    `yaml:"health"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig is the API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig locates the SQLite file holding connection profiles.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// BroadcastConfig bounds the info fan-out. NodeTimeout applies to each node,
// RoundTimeout to a whole assembly.
type BroadcastConfig struct {
	NodeTimeout  time.Duration `yaml:"node_timeout"`
	RoundTimeout time.Duration `yaml:"round_timeout"`
}

// HealthConfig drives the per-connection status checks.
type HealthConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxFailures int           `yaml:"max_failures"`
}

// MetricsConfig controls the Prometheus endpoint. Enabled is a pointer so an
// explicit false in the file survives defaulting.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Environment overrides, applied after the file.
const (
	EnvAddr     = "CLUSTERSCOPE_ADDR"
	EnvDB       = "CLUSTERSCOPE_DB"
	EnvLogLevel = "CLUSTERSCOPE_LOG_LEVEL"
)

// Default returns a configuration usable without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, fills unset fields with defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MetricsEnabled reports whether the /metrics endpoint is served.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// Logging converts the log section for the logging package.
func (c *Config) Logging() logging.Config {
	return logging.Config{Level: c.Log.Level, Development: c.Log.Development}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "clusterscope.db"
	}
	if c.Broadcast.NodeTimeout == 0 {
		c.Broadcast.NodeTimeout = 2 * time.Second
	}
	if c.Broadcast.RoundTimeout == 0 {
		c.Broadcast.RoundTimeout = 5 * time.Second
	}
	if c.Health.Interval == 0 {
		c.Health.Interval = 10 * time.Second
	}
	if c.Health.MaxFailures == 0 {
		c.Health.MaxFailures = 3
	}
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Server.Addr = addr
	}
	if path := os.Getenv(EnvDB); path != "" {
		c.Database.Path = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Broadcast.NodeTimeout < 0 || c.Broadcast.RoundTimeout < 0 {
		errs = append(errs, errors.New("broadcast timeouts must be positive"))
	}
	if c.Broadcast.NodeTimeout > c.Broadcast.RoundTimeout {
		errs = append(errs, fmt.Errorf("broadcast.node_timeout %s exceeds round_timeout %s",
			c.Broadcast.NodeTimeout, c.Broadcast.RoundTimeout))
	}
	if c.Health.Interval < 0 {
		errs = append(errs, errors.New("health.interval must be positive"))
	}
	if c.Health.MaxFailures < 0 {
		errs = append(errs, errors.New("health.max_failures must be positive"))
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
