// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Signet components.
//
// Configuration is loaded from a single YAML file specified by:
//   - SIGNET_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Environment variables
// do not override file values; what the file says is what runs.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a Signet client.
type Config struct {
	// Identity configures who this client is.
	Identity IdentityConfig `yaml:"identity"`

	// Relay configures the signaling relay connection.
	Relay RelayConfig `yaml:"relay"`

	// Directory configures the public key directory.
	Directory DirectoryConfig `yaml:"directory"`

	// Peering configures session negotiation.
	Peering PeeringConfig `yaml:"peering"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// IdentityConfig configures the local user identity.
type IdentityConfig struct {
	// Handle is this user's identifier on the relay. Peers address
	// signals to it, and connection-collision tie-breaks compare it
	// against the peer's handle.
	Handle string `yaml:"handle"`

	// KeyFile is the path to the age identity file used to open sealed
	// signaling payloads. Empty means no local identity: inbound
	// sealed payloads are rejected and outbound signaling is sent in
	// clear.
	KeyFile string `yaml:"key_file"`
}

// RelayConfig configures the signaling relay connection.
type RelayConfig struct {
	// URL is the relay's base URL.
	URL string `yaml:"url"`

	// PollInterval is how often to poll the relay for inbound signals.
	// Default: 2s
	PollInterval string `yaml:"poll_interval"`
}

// DirectoryConfig configures the public key directory.
type DirectoryConfig struct {
	// URL is the directory's base URL. Empty disables key lookups;
	// signaling payloads then go out in clear.
	URL string `yaml:"url"`
}

// PeeringConfig configures session negotiation.
type PeeringConfig struct {
	// ConnectTimeout bounds how long a session may negotiate before it
	// is failed. Default: 30s
	ConnectTimeout string `yaml:"connect_timeout"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the default configuration. These defaults ensure all
// fields have sensible zero-values; Handle and Relay.URL still have to
// come from the file or flags.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			PollInterval: "2s",
		},
		Peering: PeeringConfig{
			ConnectTimeout: "30s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the SIGNET_CONFIG environment variable.
// Fails when it is not set; use LoadFile for an explicit path.
func Load() (*Config, error) {
	path := os.Getenv("SIGNET_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("SIGNET_CONFIG environment variable not set; " +
			"set it to the path of your signet.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that required fields are present and durations parse.
func (c *Config) Validate() error {
	if c.Identity.Handle == "" {
		return fmt.Errorf("identity.handle is required")
	}
	if c.Relay.URL == "" {
		return fmt.Errorf("relay.url is required")
	}
	if _, err := url.Parse(c.Relay.URL); err != nil {
		return fmt.Errorf("relay.url: %w", err)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if _, err := c.ConnectTimeout(); err != nil {
		return err
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// PollInterval returns the parsed relay poll interval.
func (c *Config) PollInterval() (time.Duration, error) {
	return parseDuration("relay.poll_interval", c.Relay.PollInterval, 2*time.Second)
}

// ConnectTimeout returns the parsed negotiation timeout.
func (c *Config) ConnectTimeout() (time.Duration, error) {
	return parseDuration("peering.connect_timeout", c.Peering.ConnectTimeout, 30*time.Second)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", field, parsed)
	}
	return parsed, nil
}
