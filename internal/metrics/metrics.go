// Package metrics provides runtime counters for the session cache, the API client
// and the synchronization controller.
// Package metrics 提供会话缓存、API客户端和同步控制器的运行时计数器。
//
// All counters are updated atomically. Every method is safe to call on a nil
// *Metrics, so components can run without a collector.
//
// 所有计数器均以原子方式更新。所有方法都可以在nil的*Metrics上安全调用，
// 因此组件可以在没有收集器的情况下运行。
package metrics

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Metrics is the counter set shared by the client components.
// Metrics 是客户端组件共享的计数器集合。
type Metrics struct {
	// Session cache counters
	// 会话缓存计数
	cacheHits          uint64 // Valid snapshot served / 命中有效快照
	cacheMisses        uint64 // Key absent or unreadable / 键不存在或无法读取
	cacheExpired       uint64 // Snapshot older than the TTL / 快照超过TTL
	cacheCorrupt       uint64 // Malformed record deleted / 删除的损坏记录
	cacheWrites        uint64 // Records written / 写入次数
	cacheInvalidations uint64 // Keys removed on invalidation / 失效删除的键数

	// Remote API counters
	// 远程API计数
	apiRequests   uint64 // Requests sent / 发出的请求数
	apiErrors     uint64 // Failed requests / 失败的请求数
	apiLatencySum uint64 // Sum of request latencies (ns) / 请求延迟总和（纳秒）

	// Real-time counters
	// 实时事件计数
	eventsReceived uint64 // Frames dispatched to handlers / 分发的消息帧
	eventsDropped  uint64 // Frames without a usable payload / 无法使用的消息帧
	reconnects     uint64 // Socket reconnect attempts / 重连次数

	startedAt int64
}

// New creates a new metrics collector.
//
// New 创建一个新的指标收集器。
func New() *Metrics {
	return &Metrics{startedAt: time.Now().UnixNano()}
}

// RecordCacheHit records a valid snapshot served from the session cache.
// RecordCacheHit 记录从会话缓存返回的有效快照。
func (m *Metrics) RecordCacheHit() { m.add(func(m *Metrics) *uint64 { return &m.cacheHits }) }

// RecordCacheMiss records a lookup that found nothing usable.
// RecordCacheMiss 记录未找到可用数据的查找。
func (m *Metrics) RecordCacheMiss() { m.add(func(m *Metrics) *uint64 { return &m.cacheMisses }) }

// RecordCacheExpired records a snapshot discarded because of its age.
func (m *Metrics) RecordCacheExpired() { m.add(func(m *Metrics) *uint64 { return &m.cacheExpired }) }

// RecordCacheCorrupt records a malformed record that was deleted.
func (m *Metrics) RecordCacheCorrupt() { m.add(func(m *Metrics) *uint64 { return &m.cacheCorrupt }) }

// RecordCacheWrite records a record written to the session cache.
func (m *Metrics) RecordCacheWrite() { m.add(func(m *Metrics) *uint64 { return &m.cacheWrites }) }

// RecordCacheInvalidation records a key removed by an invalidation.
func (m *Metrics) RecordCacheInvalidation() {
	m.add(func(m *Metrics) *uint64 { return &m.cacheInvalidations })
}

// RecordRequest records a finished API request and its latency.
//
// RecordRequest 记录一个已完成的API请求及其延迟。
func (m *Metrics) RecordRequest(latency time.Duration, failed bool) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.apiRequests, 1)
	atomic.AddUint64(&m.apiLatencySum, uint64(latency.Nanoseconds()))
	if failed {
		atomic.AddUint64(&m.apiErrors, 1)
	}
}

// RecordEvent records a real-time frame dispatched to subscribers.
func (m *Metrics) RecordEvent() { m.add(func(m *Metrics) *uint64 { return &m.eventsReceived }) }

// RecordDroppedEvent records a real-time frame that could not be used.
func (m *Metrics) RecordDroppedEvent() { m.add(func(m *Metrics) *uint64 { return &m.eventsDropped }) }

// RecordReconnect records a socket reconnect attempt.
func (m *Metrics) RecordReconnect() { m.add(func(m *Metrics) *uint64 { return &m.reconnects }) }

func (m *Metrics) add(counter func(*Metrics) *uint64) {
	if m == nil {
		return
	}
	atomic.AddUint64(counter(m), 1)
}

// Snapshot is a point-in-time copy of all counters.
// Snapshot 是所有计数器的某一时刻副本。
type Snapshot struct {
	CacheHits          uint64        `json:"cache_hits"`
	CacheMisses        uint64        `json:"cache_misses"`
	CacheExpired       uint64        `json:"cache_expired"`
	CacheCorrupt       uint64        `json:"cache_corrupt"`
	CacheWrites        uint64        `json:"cache_writes"`
	CacheInvalidations uint64        `json:"cache_invalidations"`
	CacheHitRatio      float64       `json:"cache_hit_ratio"`
	APIRequests        uint64        `json:"api_requests"`
	APIErrors          uint64        `json:"api_errors"`
	APIAvgLatency      time.Duration `json:"api_avg_latency"`
	EventsReceived     uint64        `json:"events_received"`
	EventsDropped      uint64        `json:"events_dropped"`
	Reconnects         uint64        `json:"reconnects"`
	Uptime             time.Duration `json:"uptime"`
}

// GetSnapshot returns the current counter values, or nil for a nil collector.
//
// GetSnapshot 返回当前计数器的值；收集器为nil时返回nil。
func (m *Metrics) GetSnapshot() *Snapshot {
	if m == nil {
		return nil
	}
	s := &Snapshot{
		CacheHits:          atomic.LoadUint64(&m.cacheHits),
		CacheMisses:        atomic.LoadUint64(&m.cacheMisses),
		CacheExpired:       atomic.LoadUint64(&m.cacheExpired),
		CacheCorrupt:       atomic.LoadUint64(&m.cacheCorrupt),
		CacheWrites:        atomic.LoadUint64(&m.cacheWrites),
		CacheInvalidations: atomic.LoadUint64(&m.cacheInvalidations),
		APIRequests:        atomic.LoadUint64(&m.apiRequests),
		APIErrors:          atomic.LoadUint64(&m.apiErrors),
		EventsReceived:     atomic.LoadUint64(&m.eventsReceived),
		EventsDropped:      atomic.LoadUint64(&m.eventsDropped),
		Reconnects:         atomic.LoadUint64(&m.reconnects),
		Uptime:             time.Duration(time.Now().UnixNano() - m.startedAt),
	}
	if lookups := s.CacheHits + s.CacheMisses + s.CacheExpired + s.CacheCorrupt; lookups > 0 {
		s.CacheHitRatio = float64(s.CacheHits) / float64(lookups)
	}
	if s.APIRequests > 0 {
		s.APIAvgLatency = time.Duration(atomic.LoadUint64(&m.apiLatencySum) / s.APIRequests)
	}
	return s
}

// String returns the snapshot as JSON.
func (s *Snapshot) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}
