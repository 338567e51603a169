// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signet.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
identity:
  handle: alice
  key_file: /home/alice/.signet/identity.age
relay:
  url: https://relay.example.net
  poll_interval: 5s
directory:
  url: https://accounts.example.net
peering:
  connect_timeout: 45s
log:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if got, want := cfg.Identity.Handle, "alice"; got != want {
		t.Errorf("Handle = %s, want %s", got, want)
	}
	if got, want := cfg.Relay.URL, "https://relay.example.net"; got != want {
		t.Errorf("Relay.URL = %s, want %s", got, want)
	}

	interval, err := cfg.PollInterval()
	if err != nil {
		t.Fatalf("PollInterval: %v", err)
	}
	if interval != 5*time.Second {
		t.Errorf("PollInterval = %s, want 5s", interval)
	}
	timeout, err := cfg.ConnectTimeout()
	if err != nil {
		t.Fatalf("ConnectTimeout: %v", err)
	}
	if timeout != 45*time.Second {
		t.Errorf("ConnectTimeout = %s, want 45s", timeout)
	}
}

func TestLoadFilePartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
identity:
  handle: alice
relay:
  url: http://localhost:8787
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if interval, _ := cfg.PollInterval(); interval != 2*time.Second {
		t.Errorf("default PollInterval = %s, want 2s", interval)
	}
	if timeout, _ := cfg.ConnectTimeout(); timeout != 30*time.Second {
		t.Errorf("default ConnectTimeout = %s, want 30s", timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default Log.Level = %s, want info", cfg.Log.Level)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadFile on a missing file succeeded")
	}
}

func TestLoadFileMalformedYAML(t *testing.T) {
	path := writeConfig(t, "identity: [unbalanced")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("LoadFile on malformed YAML succeeded")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing handle", func(c *Config) { c.Identity.Handle = "" }},
		{"missing relay url", func(c *Config) { c.Relay.URL = "" }},
		{"bad poll interval", func(c *Config) { c.Relay.PollInterval = "often" }},
		{"negative poll interval", func(c *Config) { c.Relay.PollInterval = "-2s" }},
		{"bad connect timeout", func(c *Config) { c.Peering.ConnectTimeout = "soon" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			cfg.Identity.Handle = "alice"
			cfg.Relay.URL = "http://localhost:8787"
			test.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv("SIGNET_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load without SIGNET_CONFIG succeeded")
	}
}

func TestLoadUsesEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
identity:
  handle: alice
relay:
  url: http://localhost:8787
`)
	t.Setenv("SIGNET_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Identity.Handle != "alice" {
		t.Errorf("Handle = %s, want alice", cfg.Identity.Handle)
	}
}
