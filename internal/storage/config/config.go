package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

type Config struct {
	Backend string      `yaml:"backend"` // "memory" or "mongo"
	Mongo   MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	DatabaseName   string        `yaml:"database_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func DefaultConfig() Config {
	return Config{
		Backend: BackendMemory,
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			DatabaseName:   "devcamper",
			ConnectTimeout: 10 * time.Second,
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.Mongo.URI == "" {
		c.Mongo.URI = defaults.Mongo.URI
	}
	if c.Mongo.DatabaseName == "" {
		c.Mongo.DatabaseName = defaults.Mongo.DatabaseName
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = defaults.Mongo.ConnectTimeout
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CATALOG_STORAGE_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("CATALOG_MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("CATALOG_MONGO_DATABASE"); v != "" {
		c.Mongo.DatabaseName = v
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in storage config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("storage.mongo.uri is required")
		}
		if c.Mongo.DatabaseName == "" {
			return errors.New("storage.mongo.database_name is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Backend)
	}
}
