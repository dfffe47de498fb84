package bus

import "github.com/soundvine/rewards/pkg/logger"

// Option applies a configuration option to the Bus.
type Option func(*Bus)

// WithBufferCapacity bounds the in-process dispatch buffer.
func WithBufferCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithLogger sets a custom logger for the bus.
func WithLogger(l logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}
