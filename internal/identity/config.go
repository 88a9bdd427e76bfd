package identity

import (
	"errors"
	"os"
	"time"
)

// Config controls token issuing and password hashing.
type Config struct {
	// JWTSecret signs HS256 tokens. Required.
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Issuer    string        `yaml:"issuer"`

	// PasswordAlgo is "bcrypt" or "argon2id". Existing hashes keep
	// verifying with the algorithm they were created with.
	PasswordAlgo string `yaml:"password_algo"`
	BcryptCost   int    `yaml:"bcrypt_cost"`

	MinPasswordLength int `yaml:"min_password_length"`
}

// DefaultConfig returns default identity configuration.
func DefaultConfig() Config {
	return Config{
		TokenTTL:          30 * 24 * time.Hour,
		Issuer:            "catalog",
		PasswordAlgo:      AlgoBcrypt,
		BcryptCost:        10,
		MinPasswordLength: 6,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.TokenTTL <= 0 {
		c.TokenTTL = d.TokenTTL
	}
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if c.PasswordAlgo == "" {
		c.PasswordAlgo = d.PasswordAlgo
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = d.BcryptCost
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = d.MinPasswordLength
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("CATALOG_JWT_SECRET"); val != "" {
		c.JWTSecret = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in identity config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("identity.jwt_secret must be at least 16 characters")
	}
	switch c.PasswordAlgo {
	case AlgoBcrypt, AlgoArgon2id:
	default:
		return errors.New("identity.password_algo must be bcrypt or argon2id")
	}
	return nil
}
