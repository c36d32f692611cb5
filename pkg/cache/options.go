package cache

import (
	"log/slog"
	"time"

	"github.com/yourusername/shopsync/internal/metrics"
	"github.com/yourusername/shopsync/pkg/clock"
	"github.com/yourusername/shopsync/pkg/codec"
)

// Option is a function type for configuring a session cache store.
//
// Option 是用于配置会话缓存存储的函数类型。
type Option func(*Config)

// WithName sets the store name used in logs.
func WithName(name string) Option {
	return func(c *Config) {
		c.Name = name
	}
}

// WithTTL sets the freshness window of timed snapshots.
//
// WithTTL 设置带时间戳快照的有效期。
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.TTL = ttl
	}
}

// WithCodec sets the record codec.
func WithCodec(codec codec.Codec) Option {
	return func(c *Config) {
		c.Codec = codec
	}
}

// WithClock sets the time source used for TTL checks.
//
// WithClock 设置用于TTL检查的时间源。
func WithClock(clk clock.Clock) Option {
	return func(c *Config) {
		c.Clock = clk
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}
