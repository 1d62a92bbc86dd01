package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full server configuration. It is assembled
// once at startup, from an optional YAML file overlaid by the command
// line, and never mutated afterwards.
type Config struct {
	Host         string `yaml:"host"`          // bind address, "" means all interfaces
	Port         int    `yaml:"port"`          // 1-65535
	Delay        int    `yaml:"delay"`         // hold time in whole seconds, > 0
	SingleClient bool   `yaml:"single_client"` // serve at most one connection at a time
	ReusePort    bool   `yaml:"reuse_port"`    // set SO_REUSEPORT on the listener
	DNSTimeout   string `yaml:"dns_timeout"`   // reverse-DNS budget, duration string, "0" disables

	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`     // debug, info, error
	InfoLog  string `yaml:"info_log"`  // file mirror of the stdout stream
	ErrorLog string `yaml:"error_log"` // file mirror of the stderr stream
}

const defaultDNSTimeout = time.Second

// Default returns the baseline configuration. Port and Delay stay
// zero: they are the two required arguments and have no defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate enforces the startup invariants. It runs once, on the
// merged file and command-line result; violations are fatal at
// startup, never at runtime.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Delay <= 0 {
		return fmt.Errorf("delay must be a positive number of seconds, got %d", c.Delay)
	}
	if _, err := c.DNSTimeoutDuration(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "", "debug", "info", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// DNSTimeoutDuration parses the reverse-DNS lookup budget. Empty
// means one second; zero disables lookups entirely.
func (c *Config) DNSTimeoutDuration() (time.Duration, error) {
	if c.DNSTimeout == "" {
		return defaultDNSTimeout, nil
	}
	d, err := time.ParseDuration(c.DNSTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid dns_timeout %q: %w", c.DNSTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("dns_timeout must not be negative, got %s", c.DNSTimeout)
	}
	return d, nil
}
