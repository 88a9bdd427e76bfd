// Package config provides configuration for the query translator.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds pagination bounds applied to every list request.
type Config struct {
	// DefaultLimit is used when the limit parameter is missing or invalid.
	// Defaults to 100.
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps the limit parameter. Defaults to 1000.
	MaxLimit int `yaml:"max_limit"`
}

// DefaultConfig returns the default query configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: 100,
		MaxLimit:     1000,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = defaults.DefaultLimit
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = defaults.MaxLimit
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CATALOG_QUERY_MAX_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxLimit = n
		}
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in query config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("query.default_limit must be positive")
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("query.max_limit (%d) must be >= query.default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	return nil
}
