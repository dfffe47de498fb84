package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if REWARDS_CONFIG is set
//  3. env (prefix REWARDS_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("REWARDS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: REWARDS_ADDR, REWARDS_DRAIN_BATCH_SIZE, ...
	// Map env keys like REWARDS_DRAIN_BATCH_SIZE -> drain_batch_size.
	envProvider := env.Provider("REWARDS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rewards_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("%w: database_dsn must not be empty", ErrInvalidConfig)
	}
	if c.DrainBatchSize <= 0 {
		return fmt.Errorf("%w: drain_batch_size must be positive", ErrInvalidConfig)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("%w: buffer_capacity must be positive", ErrInvalidConfig)
	}
	if c.TrendingRewardRanks <= 0 || c.TrendingRewardRanks > c.TrendingLimit {
		return fmt.Errorf("%w: trending_reward_ranks out of range", ErrInvalidConfig)
	}
	return nil
}
