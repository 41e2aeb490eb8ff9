package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootd.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DHCP.BindAddress != DefaultDHCPBindAddress {
		t.Errorf("DHCP.BindAddress = %q, want %q", cfg.DHCP.BindAddress, DefaultDHCPBindAddress)
	}
	if cfg.TFTP.BindAddress != DefaultTFTPBindAddress {
		t.Errorf("TFTP.BindAddress = %q, want %q", cfg.TFTP.BindAddress, DefaultTFTPBindAddress)
	}
	if cfg.DHCP.RateLimit.GlobalPerSec != DefaultRateLimitGlobal {
		t.Errorf("RateLimit.GlobalPerSec = %d, want %d", cfg.DHCP.RateLimit.GlobalPerSec, DefaultRateLimitGlobal)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, DefaultLogLevel)
	}
}

func TestLoadOverridesFromTOML(t *testing.T) {
	path := writeConfig(t, `
[dhcp]
interface = "eth1"
bind_address = ":6767"
relay_aware = true

[dhcp.rate_limit]
enabled = true
global_per_second = 50
per_client_per_second = 2

[tftp]
bind_address = ":6969"
idle_timeout = "30s"

[metrics]
enabled = true
listen = "127.0.0.1:9191"

[logging]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DHCP.Interface != "eth1" {
		t.Errorf("DHCP.Interface = %q, want eth1", cfg.DHCP.Interface)
	}
	if !cfg.DHCP.RelayAware {
		t.Error("DHCP.RelayAware = false, want true")
	}
	if cfg.DHCP.RateLimit.GlobalPerSec != 50 {
		t.Errorf("RateLimit.GlobalPerSec = %d, want 50", cfg.DHCP.RateLimit.GlobalPerSec)
	}
	if cfg.TFTP.BindAddress != ":6969" {
		t.Errorf("TFTP.BindAddress = %q, want :6969", cfg.TFTP.BindAddress)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9191" {
		t.Errorf("Metrics.Listen = %q, want 127.0.0.1:9191", cfg.Metrics.Listen)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadBindAddress(t *testing.T) {
	path := writeConfig(t, `
[dhcp]
bind_address = "not-a-valid-address"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for malformed bind address")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
