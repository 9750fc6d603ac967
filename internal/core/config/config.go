package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Processor ProcessorConfig `koanf:"processor"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// CatalogConfig points at the directory of event-type definition files.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// UnhandledPolicy controls what happens to an event whose type has no
// registered handler.
const (
	// UnhandledPolicyPending leaves the event unprocessed with only a log
	// line; it becomes eligible again once a handler is registered.
	UnhandledPolicyPending = "pending"
	// UnhandledPolicyFail records the no-handler message as a processing
	// error so the event shows up in failed stats and alerts.
	UnhandledPolicyFail = "fail"
)

// ProcessorConfig controls the database-manager batch loop.
type ProcessorConfig struct {
	// Enabled starts the background scheduler. The HTTP process endpoints
	// work either way.
	Enabled         bool   `koanf:"enabled"`
	Interval        string `koanf:"interval"`
	BatchSize       int    `koanf:"batch_size"`
	UnhandledPolicy string `koanf:"unhandled_policy"` // pending | fail
}

// ParsedInterval returns the scheduler interval as a duration.
// Call only after Validate.
func (p ProcessorConfig) ParsedInterval() time.Duration {
	d, _ := time.ParseDuration(p.Interval)
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	interval, err := time.ParseDuration(c.Processor.Interval)
	if err != nil {
		return fmt.Errorf("invalid processor.interval %q: %w", c.Processor.Interval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("processor.interval must be > 0")
	}
	if c.Processor.BatchSize <= 0 {
		return fmt.Errorf("processor.batch_size must be > 0")
	}
	if c.Processor.UnhandledPolicy != UnhandledPolicyPending && c.Processor.UnhandledPolicy != UnhandledPolicyFail {
		return fmt.Errorf("invalid processor.unhandled_policy %q (must be pending or fail)", c.Processor.UnhandledPolicy)
	}

	return nil
}

// Load parses config from defaults, an optional YAML file, and JOVEY_*
// environment variables, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.max_body_size_mb":    1,
		"server.mode":                "release",
		"database.dsn":               "",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    25,
		"database.auto_migrate":      true,
		"catalog.path":               "./config/event-types",
		"processor.enabled":          true,
		"processor.interval":         "1m",
		"processor.batch_size":       100,
		"processor.unhandled_policy": UnhandledPolicyPending,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("JOVEY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "JOVEY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
