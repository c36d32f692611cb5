// Package cache provides the session cache store of the storefront client.
// It keeps timestamped snapshots of product lists and the persisted search state
// in a keyed Storage, and enforces a single TTL rule on every timed read.
// Unreadable records are treated as misses and removed, never returned as errors.
//
// Package cache 提供店面客户端的会话缓存存储。
// 它在键值Storage中保存带时间戳的商品列表快照和持久化的搜索状态，
// 并对每次带时间戳的读取执行统一的TTL规则。
// 无法读取的记录被视为未命中并被删除，从不作为错误返回。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/yourusername/shopsync/pkg/clock"
)

// Keys used by the storefront.
//
// 店面使用的缓存键。
const (
	KeyProducts       = "cachedProducts"
	KeyProductsCursor = "cachedProductsCursor"
	KeyOwnerProducts  = "cachedOwnerProducts"
	KeySearch         = "cachedSearch"
)

// record is the serialized form of a timed snapshot: {"data": ..., "timestamp": epoch-ms}.
type record struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Stats represents session cache statistics.
//
// Stats 表示会话缓存统计信息。
type Stats struct {
	// Hits is the number of valid records served
	// Hits 是返回有效记录的次数
	Hits int64

	// Misses is the number of lookups that found no record
	// Misses 是未找到记录的查找次数
	Misses int64

	// Expired is the number of snapshots discarded after the TTL
	// Expired 是超过TTL后被丢弃的快照数
	Expired int64

	// Corrupt is the number of malformed records deleted
	// Corrupt 是被删除的损坏记录数
	Corrupt int64

	// Writes is the number of records written
	// Writes 是写入记录的次数
	Writes int64
}

// Store is the session cache store.
// All methods are safe for concurrent use.
//
// Store 是会话缓存存储。
// 所有方法都可以安全地并发调用。
type Store struct {
	storage Storage
	config  *Config

	hits    int64
	misses  int64
	expired int64
	corrupt int64
	writes  int64
}

// New creates a session cache store over storage.
//
// New 在storage之上创建一个会话缓存存储。
//
// Parameters:
//   - storage: The keyed backend holding the records
//   - options: Optional configuration
//
// Returns:
//   - *Store: A new store
//   - error: An error if the configuration is invalid
func New(storage Storage, options ...Option) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("cache storage cannot be nil")
	}

	config := NewDefaultConfig()
	for _, option := range options {
		option(config)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	config.Logger = config.Logger.With("cache", config.Name)

	return &Store{storage: storage, config: config}, nil
}

// TTL returns the freshness window of timed snapshots.
func (s *Store) TTL() int64 {
	return s.config.TTL.Milliseconds()
}

// IsValid reports whether a snapshot taken at timestamp (epoch-ms) is still fresh.
// The window is exclusive: a snapshot exactly TTL old is expired.
//
// IsValid 报告在timestamp（毫秒时间戳）时刻生成的快照是否仍然有效。
// 有效期不含边界：恰好达到TTL的快照视为过期。
func (s *Store) IsValid(timestamp int64) bool {
	return clock.NowMillis(s.config.Clock)-timestamp < s.config.TTL.Milliseconds()
}

// Save writes data as a snapshot stamped with the current time.
//
// Save 将data写入为带当前时间戳的快照。
//
// Parameters:
//   - ctx: Context for the storage call
//   - key: The record key
//   - data: The payload to snapshot
//
// Returns:
//   - error: An error if encoding or the storage write fails
func (s *Store) Save(ctx context.Context, key string, data interface{}) error {
	payload, err := s.encodePayload(data)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(record{Data: payload, Timestamp: clock.NowMillis(s.config.Clock)})
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.write(ctx, key, raw)
}

// Load reads the snapshot under key into dst.
// It returns false on a miss. Malformed or expired records are deleted and also
// reported as a miss; dst is left untouched for absent and expired records.
//
// Load 将key下的快照读取到dst中。
// 未命中时返回false。格式错误或过期的记录会被删除，同样报告为未命中；
// 记录不存在或过期时dst保持不变。
func (s *Store) Load(ctx context.Context, key string, dst interface{}) bool {
	raw, ok := s.read(ctx, key)
	if !ok {
		return false
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || len(rec.Data) == 0 {
		s.dropCorrupt(ctx, key, err)
		return false
	}

	if !s.IsValid(rec.Timestamp) {
		atomic.AddInt64(&s.expired, 1)
		s.config.Metrics.RecordCacheExpired()
		s.remove(ctx, key)
		return false
	}

	if err := s.decodePayload(rec.Data, dst); err != nil {
		s.dropCorrupt(ctx, key, err)
		return false
	}

	atomic.AddInt64(&s.hits, 1)
	s.config.Metrics.RecordCacheHit()
	return true
}

// Timestamp returns the epoch-ms timestamp of the snapshot under key without
// checking its freshness.
func (s *Store) Timestamp(ctx context.Context, key string) (int64, bool) {
	raw, ok, err := s.storage.GetItem(ctx, key)
	if err != nil || !ok {
		return 0, false
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return 0, false
	}
	return rec.Timestamp, true
}

// Put writes v under key without a timestamp. Used for state that lives for the
// whole session, such as the search box.
//
// Put 将v以不带时间戳的形式写入key，用于在整个会话期间保留的状态，例如搜索框。
func (s *Store) Put(ctx context.Context, key string, v interface{}) error {
	raw, err := s.config.Codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return s.write(ctx, key, raw)
}

// Get reads an untimed record written by Put into dst.
// A malformed record is deleted and reported as a miss.
//
// Get 将Put写入的不带时间戳的记录读取到dst中。
// 格式错误的记录会被删除并报告为未命中。
func (s *Store) Get(ctx context.Context, key string, dst interface{}) bool {
	raw, ok := s.read(ctx, key)
	if !ok {
		return false
	}
	if err := s.config.Codec.Unmarshal(raw, dst); err != nil {
		s.dropCorrupt(ctx, key, err)
		return false
	}
	atomic.AddInt64(&s.hits, 1)
	s.config.Metrics.RecordCacheHit()
	return true
}

// Invalidate removes the named records.
//
// Invalidate 删除指定的记录。
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if s.remove(ctx, key) {
			s.config.Metrics.RecordCacheInvalidation()
		}
	}
}

// Stats returns the store statistics.
//
// Stats 返回存储的统计信息。
func (s *Store) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadInt64(&s.hits),
		Misses:  atomic.LoadInt64(&s.misses),
		Expired: atomic.LoadInt64(&s.expired),
		Corrupt: atomic.LoadInt64(&s.corrupt),
		Writes:  atomic.LoadInt64(&s.writes),
	}
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := s.storage.GetItem(ctx, key)
	if err != nil {
		// A storage read failure is a miss, the caller falls back to the network.
		s.config.Logger.Warn("session storage read failed", "key", key, "error", err)
	}
	if err != nil || !ok {
		atomic.AddInt64(&s.misses, 1)
		s.config.Metrics.RecordCacheMiss()
		return nil, false
	}
	return raw, true
}

func (s *Store) write(ctx context.Context, key string, raw []byte) error {
	if err := s.storage.SetItem(ctx, key, raw); err != nil {
		return fmt.Errorf("cache: write %s: %w", key, err)
	}
	atomic.AddInt64(&s.writes, 1)
	s.config.Metrics.RecordCacheWrite()
	return nil
}

func (s *Store) remove(ctx context.Context, key string) bool {
	if err := s.storage.RemoveItem(ctx, key); err != nil {
		s.config.Logger.Warn("session storage remove failed", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) dropCorrupt(ctx context.Context, key string, err error) {
	atomic.AddInt64(&s.corrupt, 1)
	s.config.Metrics.RecordCacheCorrupt()
	s.config.Logger.Debug("dropping malformed session record", "key", key, "error", err)
	s.remove(ctx, key)
}

// encodePayload embeds JSON payloads as-is and carries other codecs' bytes as a
// base64 string, so the outer record is always {"data", "timestamp"} JSON.
func (s *Store) encodePayload(data interface{}) (json.RawMessage, error) {
	payload, err := s.config.Codec.Marshal(data)
	if err != nil {
		return nil, err
	}
	if s.config.Codec.Name() == "json" {
		return payload, nil
	}
	wrapped, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return wrapped, nil
}

func (s *Store) decodePayload(data json.RawMessage, dst interface{}) error {
	if s.config.Codec.Name() == "json" {
		return s.config.Codec.Unmarshal(data, dst)
	}
	var payload []byte
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	return s.config.Codec.Unmarshal(payload, dst)
}
