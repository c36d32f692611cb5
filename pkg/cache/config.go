package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/yourusername/shopsync/internal/metrics"
	"github.com/yourusername/shopsync/pkg/clock"
	"github.com/yourusername/shopsync/pkg/codec"
)

// DefaultTTL is how long a product list snapshot stays valid.
//
// DefaultTTL 是商品列表快照保持有效的时长。
const DefaultTTL = 5 * time.Minute

// Config holds the configuration of a session cache store.
//
// Config 保存会话缓存存储的配置。
type Config struct {
	// Name identifies the store in logs
	// Name 在日志中标识该存储
	Name string `json:"name" yaml:"name"`

	// TTL is the exclusive freshness window of timed snapshots
	// TTL 是带时间戳快照的有效期（不含边界）
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// Codec serializes record payloads
	// Codec 用于序列化记录内容
	Codec codec.Codec `json:"-" yaml:"-"`

	// Clock supplies the current time for TTL checks
	// Clock 为TTL检查提供当前时间
	Clock clock.Clock `json:"-" yaml:"-"`

	// Logger receives cache warnings
	// Logger 接收缓存告警日志
	Logger *slog.Logger `json:"-" yaml:"-"`

	// Metrics collects hit/miss counters, may be nil
	// Metrics 收集命中/未命中计数，可以为nil
	Metrics *metrics.Metrics `json:"-" yaml:"-"`
}

// NewDefaultConfig returns a Config with reasonable default values.
//
// NewDefaultConfig 返回具有合理默认值的Config。
func NewDefaultConfig() *Config {
	return &Config{
		Name:   "session",
		TTL:    DefaultTTL,
		Codec:  codec.DefaultCodec(),
		Clock:  clock.System(),
		Logger: slog.Default(),
	}
}

// Validate checks that the configuration is usable.
//
// Validate 检查配置是否可用。
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Codec == nil {
		return fmt.Errorf("cache codec cannot be nil")
	}
	if c.Clock == nil {
		return fmt.Errorf("cache clock cannot be nil")
	}
	return nil
}
