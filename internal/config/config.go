// Package config loads the proxy's optional YAML configuration file
// and applies defaults and validation, following jupiter's
// pkg/config/load.go shape (LoadConfig -> ApplyDefaults -> Validate).
// Per spec §6, the core never consults environment variables; unlike
// jupiter this package intentionally has no LoadConfigWithEnvOverrides
// equivalent (see DESIGN.md).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values, mirroring spec §4.2's suggested constants.
const (
	DefaultListenPort     = 8080
	DefaultMaxClients     = 400
	DefaultMaxCacheBytes  = 200 * 1024 * 1024
	DefaultMaxElementByte = 10 * 1024 * 1024
	DefaultMetricsAddr    = ":9090"
	// DefaultStatsCron logs a cache summary every 30 seconds. cron/v3's
	// WithSeconds() mode accepts this directly, so the default schedule
	// needs no separate ticker fallback (see DESIGN.md).
	DefaultStatsCron = "*/30 * * * * *"
)

// Config is the proxy's tunable surface. Zero values mean "use the
// default"; flags parsed in cmd/cacheproxy override whatever a config
// file set.
type Config struct {
	ListenPort      int    `yaml:"listenPort"`
	MaxClients      int    `yaml:"maxClients"`
	MaxCacheBytes   int    `yaml:"maxCacheBytes"`
	MaxElementBytes int    `yaml:"maxElementBytes"`
	MetricsAddr     string `yaml:"metricsAddr"`
	StatsCron       string `yaml:"statsCron"`
}

// ApplyDefaults fills in zero-valued fields with the package defaults.
func ApplyDefaults(c *Config) {
	if c.ListenPort == 0 {
		c.ListenPort = DefaultListenPort
	}
	if c.MaxClients == 0 {
		c.MaxClients = DefaultMaxClients
	}
	if c.MaxCacheBytes == 0 {
		c.MaxCacheBytes = DefaultMaxCacheBytes
	}
	if c.MaxElementBytes == 0 {
		c.MaxElementBytes = DefaultMaxElementByte
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = DefaultMetricsAddr
	}
	if c.StatsCron == "" {
		c.StatsCron = DefaultStatsCron
	}
}

// Validate checks the configuration is internally consistent.
func Validate(c *Config) error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("config: listenPort %d out of range", c.ListenPort)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("config: maxClients must be positive")
	}
	if c.MaxElementBytes > c.MaxCacheBytes {
		return fmt.Errorf("config: maxElementBytes (%d) exceeds maxCacheBytes (%d)",
			c.MaxElementBytes, c.MaxCacheBytes)
	}
	return nil
}

// Load reads a YAML config file at path, applies defaults, and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	ApplyDefaults(&c)
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
