package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage is a Storage kept in Redis, so that several processes acting for
// the same session share one set of records.
// Keys are namespaced as <prefix><session>:<key>.
//
// RedisStorage 是保存在Redis中的Storage，使代表同一会话的多个进程共享同一组记录。
// 键的命名空间格式为 <prefix><session>:<key>。
type RedisStorage struct {
	client    redis.UniversalClient
	namespace string
	expiry    time.Duration
}

// RedisOptions configures a RedisStorage.
type RedisOptions struct {
	// URL is a redis:// connection URL, used when Client is nil
	URL string

	// Client is an existing client to reuse
	Client redis.UniversalClient

	// Prefix is prepended to every key
	Prefix string

	// Session scopes the records to one storefront session
	Session string

	// Expiry is a server-side expiry applied on write, 0 disables it.
	// It only reclaims abandoned sessions; freshness is still decided by the TTL check.
	Expiry time.Duration
}

// NewRedisStorage connects to Redis and verifies the connection.
//
// NewRedisStorage 连接Redis并验证连接。
//
// Parameters:
//   - ctx: Context for the connection check
//   - opts: Connection and namespace options
//
// Returns:
//   - *RedisStorage: A ready storage
//   - error: An error if the URL is invalid or Redis is unreachable
func NewRedisStorage(ctx context.Context, opts RedisOptions) (*RedisStorage, error) {
	client := opts.Client
	if client == nil {
		if opts.URL == "" {
			return nil, fmt.Errorf("redis storage: url or client is required")
		}
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("redis storage: invalid url: %w", err)
		}
		client = redis.NewClient(parsed)
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis storage: failed to connect: %w", err)
	}

	session := opts.Session
	if session == "" {
		session = "default"
	}

	return &RedisStorage{
		client:    client,
		namespace: opts.Prefix + session + ":",
		expiry:    opts.Expiry,
	}, nil
}

// GetItem returns the record under key.
func (s *RedisStorage) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// SetItem stores value under key.
func (s *RedisStorage) SetItem(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.namespace+key, value, s.expiry).Err()
}

// RemoveItem deletes key.
func (s *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.namespace+key).Err()
}

// Keys lists the stored keys with the given prefix, without the namespace.
func (s *RedisStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.namespace+prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range batch {
			keys = append(keys, strings.TrimPrefix(key, s.namespace))
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Close closes the underlying client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
