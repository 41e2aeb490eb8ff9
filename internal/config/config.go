// Package config handles TOML configuration parsing and validation for bootd.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level bootd configuration.
type Config struct {
	DHCP    DHCPConfig    `toml:"dhcp"`
	TFTP    TFTPConfig    `toml:"tftp"`
	Metrics MetricsConfig `toml:"metrics"`
	Logging LoggingConfig `toml:"logging"`
}

// DHCPConfig holds the DHCPv4 server's transport and flood-guard
// settings. Allocation policy lives entirely outside this package, in
// whatever Decider the caller wires up.
type DHCPConfig struct {
	Interface   string          `toml:"interface"`
	BindAddress string          `toml:"bind_address"`
	RelayAware  bool            `toml:"relay_aware"`
	RateLimit   RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig holds the DHCP flood guard's token-bucket settings.
type RateLimitConfig struct {
	Enabled        bool `toml:"enabled"`
	GlobalPerSec   int  `toml:"global_per_second"`
	PerClientPerSec int `toml:"per_client_per_second"`
}

// TFTPConfig holds the TFTP server's transport and session settings.
type TFTPConfig struct {
	BindAddress string `toml:"bind_address"`
	IdleTimeout string `toml:"idle_timeout"`
	ImageDB     string `toml:"image_db"`
}

// MetricsConfig holds the Prometheus exporter's settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// LoggingConfig holds structured-logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Load reads and parses a TOML config file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validating: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DHCP.Interface == "" {
		cfg.DHCP.Interface = DefaultDHCPInterface
	}
	if cfg.DHCP.BindAddress == "" {
		cfg.DHCP.BindAddress = DefaultDHCPBindAddress
	}
	if cfg.DHCP.RateLimit.GlobalPerSec == 0 {
		cfg.DHCP.RateLimit.GlobalPerSec = DefaultRateLimitGlobal
	}
	if cfg.DHCP.RateLimit.PerClientPerSec == 0 {
		cfg.DHCP.RateLimit.PerClientPerSec = DefaultRateLimitClient
	}
	if cfg.TFTP.BindAddress == "" {
		cfg.TFTP.BindAddress = DefaultTFTPBindAddress
	}
	if cfg.TFTP.IdleTimeout == "" {
		cfg.TFTP.IdleTimeout = DefaultTFTPIdleTimeout.String()
	}
	if cfg.TFTP.ImageDB == "" {
		cfg.TFTP.ImageDB = DefaultTFTPImageDB
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
}

func validate(cfg *Config) error {
	if cfg.DHCP.BindAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.DHCP.BindAddress); err != nil {
			return fmt.Errorf("dhcp.bind_address %q: %w", cfg.DHCP.BindAddress, err)
		}
	}
	if cfg.TFTP.BindAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.TFTP.BindAddress); err != nil {
			return fmt.Errorf("tftp.bind_address %q: %w", cfg.TFTP.BindAddress, err)
		}
	}
	if cfg.DHCP.RateLimit.GlobalPerSec < 0 || cfg.DHCP.RateLimit.PerClientPerSec < 0 {
		return fmt.Errorf("dhcp.rate_limit values must be non-negative")
	}
	return nil
}
