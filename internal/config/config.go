// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the ops HTTP listen address (metrics + health).
	Addr string `koanf:"addr"`

	// DatabaseDSN selects the relational store. A DSN starting with
	// "postgres://" uses the Postgres driver; anything else is treated as
	// a SQLite path (":memory:" included).
	DatabaseDSN string `koanf:"database_dsn"`

	// BufferCapacity bounds the in-process dispatch buffer of the bus.
	BufferCapacity int `koanf:"buffer_capacity"`

	// DrainBatchSize caps events popped per drain cycle.
	DrainBatchSize int `koanf:"drain_batch_size"`

	// DrainInterval is the cadence of the challenge-bus drain job.
	DrainInterval time.Duration `koanf:"drain_interval"`

	// DrainLockTTL bounds how long a crashed drainer can hold the
	// advisory lock.
	DrainLockTTL time.Duration `koanf:"drain_lock_ttl"`

	// TrendingInterval is the cadence of the trending generation job.
	TrendingInterval time.Duration `koanf:"trending_interval"`

	// TrendingVersion selects the score strategy used by the periodic job.
	TrendingVersion string `koanf:"trending_version"`

	// TrendingLimit caps how many ranked items each pass produces.
	TrendingLimit int `koanf:"trending_limit"`

	// TrendingRewardRanks is how many top ranks earn a trending challenge.
	TrendingRewardRanks int `koanf:"trending_reward_ranks"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		DatabaseDSN:         "rewards.db",
		BufferCapacity:      10_000,
		DrainBatchSize:      500,
		DrainInterval:       30 * time.Second,
		DrainLockTTL:        5 * time.Minute,
		TrendingInterval:    15 * time.Minute,
		TrendingVersion:     "v2",
		TrendingLimit:       100,
		TrendingRewardRanks: 5,
	}
}
