// Package loader provides the cache-aside loading used for session snapshots:
// serve a fresh snapshot when one exists, otherwise load from the backend and
// store the result.
//
// Package loader 提供会话快照使用的旁路缓存加载：
// 存在有效快照时直接返回，否则从后端加载并保存结果。
package loader

import (
	"context"
	"log/slog"

	"github.com/yourusername/shopsync/pkg/cache"
)

// Loader loads the value stored under key from its source of truth.
//
// Loader 从数据源加载key对应的值。
type Loader[T any] interface {
	Load(ctx context.Context, key string) (T, error)
}

// LoaderFunc adapts a function to the Loader interface.
//
// LoaderFunc 将函数适配为Loader接口。
type LoaderFunc[T any] func(ctx context.Context, key string) (T, error)

// Load calls f.
func (f LoaderFunc[T]) Load(ctx context.Context, key string) (T, error) {
	return f(ctx, key)
}

// SnapshotLoader serves values from a session cache store and falls back to a
// backend loader on a miss.
//
// SnapshotLoader 从会话缓存存储中提供值，未命中时回退到后端加载器。
type SnapshotLoader[T any] struct {
	Store   *cache.Store
	Backend Loader[T]
	Logger  *slog.Logger
}

// NewSnapshotLoader creates a snapshot loader.
//
// NewSnapshotLoader 创建一个快照加载器。
//
// Parameters:
//   - store: The session cache store
//   - backend: The loader consulted on a miss
//
// Returns:
//   - *SnapshotLoader[T]: A new loader
func NewSnapshotLoader[T any](store *cache.Store, backend Loader[T]) *SnapshotLoader[T] {
	return &SnapshotLoader[T]{Store: store, Backend: backend, Logger: slog.Default()}
}

// Load returns the fresh snapshot under key, or loads it from the backend and
// snapshots the result. The boolean reports whether the value came from the cache.
// A failed snapshot write is logged and does not fail the load.
//
// Load 返回key下的有效快照，或从后端加载并保存快照。
// 布尔值表示该值是否来自缓存。快照写入失败只记录日志，不会导致加载失败。
func (l *SnapshotLoader[T]) Load(ctx context.Context, key string) (T, bool, error) {
	var cached T
	if l.Store.Load(ctx, key, &cached) {
		return cached, true, nil
	}

	value, err := l.Backend.Load(ctx, key)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if err := l.Store.Save(ctx, key, value); err != nil && l.Logger != nil {
		l.Logger.Warn("failed to snapshot loaded value", "key", key, "error", err)
	}
	return value, false, nil
}

// Refresh bypasses the cache, loads from the backend and overwrites the snapshot.
//
// Refresh 绕过缓存，从后端加载并覆盖快照。
func (l *SnapshotLoader[T]) Refresh(ctx context.Context, key string) (T, error) {
	l.Store.Invalidate(ctx, key)
	value, _, err := l.Load(ctx, key)
	return value, err
}
