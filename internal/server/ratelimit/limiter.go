// Package ratelimit throttles requests per client key.
package ratelimit

import (
	"time"
)

// Limiter decides whether a request from key may proceed.
type Limiter interface {
	Allow(key string) bool
	Reset(key string)
}

// Config holds the configuration for rate limiting.
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Requests is the bucket capacity, refilled evenly over Window.
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}
