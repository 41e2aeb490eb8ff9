package config

import "time"

// Default configuration values.
const (
	DefaultDHCPInterface     = ""
	DefaultDHCPBindAddress   = ":67"
	DefaultRateLimitGlobal   = 100
	DefaultRateLimitClient   = 5
	DefaultTFTPBindAddress   = ":69"
	DefaultTFTPIdleTimeout   = 60 * time.Second
	DefaultTFTPImageDB       = "/var/lib/bootd/images.db"
	DefaultMetricsListen     = "127.0.0.1:9090"
	DefaultLogLevel          = "info"
)
