package app

import (
	"time"

	"github.com/soundvine/rewards/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDSN sets the relational store DSN.
func WithDSN(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.dsn = dsn
		}
	}
}

// WithBufferCapacity bounds the bus dispatch buffer.
func WithBufferCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bufferCapacity = n
		}
	}
}

// WithDrainBatchSize caps events popped per drain cycle.
func WithDrainBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.drainBatchSize = n
		}
	}
}

// WithDrainInterval sets the drain job cadence.
func WithDrainInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.drainInterval = d
		}
	}
}

// WithDrainLockTTL bounds how long a crashed drainer holds the lock.
func WithDrainLockTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.drainLockTTL = d
		}
	}
}

// WithTrendingInterval sets the trending job cadence.
func WithTrendingInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.trendingInterval = d
		}
	}
}

// WithTrendingVersion selects the score strategy for the periodic job.
func WithTrendingVersion(v string) Option {
	return func(s *Service) {
		if v != "" {
			s.trendingVersion = v
		}
	}
}

// WithTrendingLimit caps ranked items per pass.
func WithTrendingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.trendingLimit = n
		}
	}
}

// WithRewardRanks sets how many top ranks earn trending challenges.
func WithRewardRanks(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rewardRanks = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
