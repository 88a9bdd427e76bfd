// Package config holds the task queue configuration.
package config

import (
	"fmt"
	"os"
)

// Provider names.
const (
	ProviderMemory = "memory"
	ProviderNATS   = "nats"
)

type Config struct {
	// Provider selects the broker: "memory" (default) or "nats".
	Provider string `yaml:"provider"`

	// NatsURL is the NATS server address. Used when Provider is "nats".
	NatsURL string `yaml:"nats_url"`

	// StreamName is the JetStream stream carrying aggregate tasks.
	StreamName string `yaml:"stream_name"`

	// StorageType is "memory" or "file".
	StorageType string `yaml:"storage_type"`
}

func DefaultConfig() Config {
	return Config{
		Provider:    ProviderMemory,
		NatsURL:     "nats://localhost:4222",
		StreamName:  "AGGREGATES",
		StorageType: "memory",
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.NatsURL == "" {
		c.NatsURL = defaults.NatsURL
	}
	if c.StreamName == "" {
		c.StreamName = defaults.StreamName
	}
	if c.StorageType == "" {
		c.StorageType = defaults.StorageType
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CATALOG_PUBSUB_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("CATALOG_NATS_URL"); v != "" {
		c.NatsURL = v
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in pubsub config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMemory:
	case ProviderNATS:
		if c.NatsURL == "" {
			return fmt.Errorf("pubsub.nats_url is required for the nats provider")
		}
	default:
		return fmt.Errorf("unsupported pubsub provider: %q", c.Provider)
	}
	if c.StreamName == "" {
		return fmt.Errorf("pubsub.stream_name is required")
	}
	if c.StorageType != "memory" && c.StorageType != "file" {
		return fmt.Errorf("pubsub.storage_type must be memory or file, got %q", c.StorageType)
	}
	return nil
}
