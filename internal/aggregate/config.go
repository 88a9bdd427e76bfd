package aggregate

import (
	"errors"
	"fmt"
	"time"
)

// Config controls trigger delivery and the recompute worker pool.
type Config struct {
	// NumWorkers is the number of recompute goroutines. Tasks are
	// partitioned across them by parent id.
	NumWorkers     int `yaml:"num_workers"`
	ChannelBufSize int `yaml:"channel_buf_size"`

	// TaskTimeout bounds a single recompute.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// PublishTimeout bounds enqueueing a task from a write path.
	PublishTimeout time.Duration `yaml:"publish_timeout"`

	DrainTimeout    time.Duration `yaml:"drain_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RetryAttempts is how many times a failed recompute is retried.
	// 0 means failures are logged and dropped.
	RetryAttempts  int           `yaml:"retry_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`

	ConsumerName string `yaml:"consumer_name"`

	// EmptyFallback is what a recompute over no children writes: "unset"
	// removes the derived field, "zero" stores 0.
	EmptyFallback string `yaml:"empty_fallback"`
}

// DefaultConfig returns default aggregate configuration.
func DefaultConfig() Config {
	return Config{
		NumWorkers:      4,
		ChannelBufSize:  100,
		TaskTimeout:     10 * time.Second,
		PublishTimeout:  5 * time.Second,
		DrainTimeout:    5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		RetryAttempts:   0,
		InitialBackoff:  time.Second,
		MaxBackoff:      30 * time.Second,
		ConsumerName:    "aggregate-worker",
		EmptyFallback:   "unset",
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.NumWorkers <= 0 {
		c.NumWorkers = d.NumWorkers
	}
	if c.ChannelBufSize <= 0 {
		c.ChannelBufSize = d.ChannelBufSize
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = d.TaskTimeout
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.ConsumerName == "" {
		c.ConsumerName = d.ConsumerName
	}
	if c.EmptyFallback == "" {
		c.EmptyFallback = d.EmptyFallback
	}
}

// ApplyEnvOverrides applies environment variable overrides.
// No aggregate-specific env vars.
func (c *Config) ApplyEnvOverrides() { _ = c }

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in aggregate config.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.NumWorkers < 0 {
		return errors.New("aggregate.num_workers must be non-negative")
	}
	if c.RetryAttempts < 0 {
		return errors.New("aggregate.retry_attempts must be non-negative")
	}
	if _, err := ParseEmptyPolicy(c.EmptyFallback); err != nil {
		return fmt.Errorf("aggregate.empty_fallback: %w", err)
	}
	return nil
}

// backoff returns the delay before delivery attempt+1, doubling from
// InitialBackoff and capped at MaxBackoff.
func (c Config) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := c.InitialBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	if d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}
