package config

import (
	"log"
	"os"
	"path/filepath"

	"github.com/devcamper/catalog/internal/aggregate"
	pubsub "github.com/devcamper/catalog/internal/core/pubsub/config"
	"github.com/devcamper/catalog/internal/identity"
	query "github.com/devcamper/catalog/internal/query/config"
	"github.com/devcamper/catalog/internal/server"
	storage "github.com/devcamper/catalog/internal/storage/config"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where LoadConfig looks for config.yml and config.local.yml.
const DefaultDir = "config"

// Config holds the application configuration
type Config struct {
	Server  server.Config `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`

	// Services
	Query     query.Config     `yaml:"query"`
	Aggregate aggregate.Config `yaml:"aggregate"`

	// Components
	Storage  storage.Config  `yaml:"storage"`
	PubSub   pubsub.Config   `yaml:"pubsub"`
	Identity identity.Config `yaml:"identity"`
}

// Default returns a configuration holding every component's defaults.
func Default() *Config {
	return &Config{
		Server:    server.DefaultConfig(),
		Logging:   DefaultLoggingConfig(),
		Query:     query.DefaultConfig(),
		Aggregate: aggregate.DefaultConfig(),
		Storage:   storage.DefaultConfig(),
		PubSub:    pubsub.DefaultConfig(),
		Identity:  identity.DefaultConfig(),
	}
}

// LoadConfig loads configuration from the default directory and exits the
// process when the result is invalid.
func LoadConfig() *Config {
	cfg, err := Load(DefaultDir)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	return cfg
}

// Load reads configuration from dir.
// Order: defaults -> config.yml -> config.local.yml -> ApplyDefaults -> ApplyEnvOverrides -> ResolvePaths -> Validate
// Missing files are skipped. Unreadable or malformed files are logged and
// skipped so the remaining layers still apply.
func Load(dir string) (*Config, error) {
	cfg := Default()

	loadFile(filepath.Join(dir, "config.yml"), cfg)
	loadFile(filepath.Join(dir, "config.local.yml"), cfg)

	if err := ApplyServiceConfigs(dir,
		&cfg.Server,
		&cfg.Logging,
		&cfg.Query,
		&cfg.Aggregate,
		&cfg.Storage,
		&cfg.PubSub,
		&cfg.Identity,
	); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}
