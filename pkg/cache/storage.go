package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Storage is the keyed byte store behind the session cache, the equivalent of a
// browser's session storage. Every controller of one session shares a Storage,
// but a write through one Store does not notify the others.
//
// Storage 是会话缓存背后的键值字节存储，相当于浏览器的会话存储。
// 同一会话的所有控制器共享一个Storage，但通过某个Store的写入不会通知其他Store。
type Storage interface {
	// GetItem returns the raw record under key.
	// The boolean is false when the key does not exist.
	GetItem(ctx context.Context, key string) ([]byte, bool, error)

	// SetItem stores a raw record under key, replacing any previous record.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Keys lists the stored keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemoryStorage is an in-process Storage backed by a map.
//
// MemoryStorage 是基于map的进程内Storage。
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

// GetItem returns a copy of the record under key.
func (s *MemoryStorage) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// SetItem stores a copy of value under key.
func (s *MemoryStorage) SetItem(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = stored
	return nil
}

// RemoveItem deletes key.
func (s *MemoryStorage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys lists the stored keys with the given prefix in sorted order.
func (s *MemoryStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.items))
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored records.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
