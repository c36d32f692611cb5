package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/yourusername/shopsync/pkg/clock"
	"github.com/yourusername/shopsync/pkg/model"
)

// newRedisStorage starts an in-process Redis server for the test.
//
// newRedisStorage 为测试启动一个进程内Redis服务器。
func newRedisStorage(t *testing.T, session string) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	storage, err := NewRedisStorage(context.Background(), RedisOptions{
		URL:     "redis://" + server.Addr(),
		Prefix:  "shopsync:",
		Session: session,
		Expiry:  time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to create redis storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage, server
}

func TestRedisStorageItems(t *testing.T) {
	storage, server := newRedisStorage(t, "tab-1")
	ctx := context.Background()

	if _, ok, err := storage.GetItem(ctx, KeyProducts); ok || err != nil {
		t.Fatalf("Expected a miss on an empty server, got ok=%v err=%v", ok, err)
	}

	if err := storage.SetItem(ctx, KeyProducts, []byte("payload")); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if !server.Exists("shopsync:tab-1:" + KeyProducts) {
		t.Error("Expected the key to be namespaced by prefix and session")
	}
	if ttl := server.TTL("shopsync:tab-1:" + KeyProducts); ttl != time.Hour {
		t.Errorf("Expected server expiry of 1h, got %s", ttl)
	}

	value, ok, err := storage.GetItem(ctx, KeyProducts)
	if err != nil || !ok || string(value) != "payload" {
		t.Errorf("GetItem() = %q, %v, %v", value, ok, err)
	}

	storage.SetItem(ctx, KeyOwnerProducts, []byte("x"))
	keys, err := storage.Keys(ctx, "cached")
	if err != nil || len(keys) != 2 {
		t.Errorf("Keys() = %v, %v", keys, err)
	}

	if err := storage.RemoveItem(ctx, KeyProducts); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, ok, _ := storage.GetItem(ctx, KeyProducts); ok {
		t.Error("Expected the key to be removed")
	}
}

// TestRedisBackedStore runs the store TTL rule against the Redis backend.
func TestRedisBackedStore(t *testing.T) {
	storage, _ := newRedisStorage(t, "tab-2")
	clk := clock.NewManual(epoch)
	store, err := New(storage, WithClock(clk))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, KeyProducts, products("1", "2")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	var got []model.Product
	if !store.Load(ctx, KeyProducts, &got) || len(got) != 2 {
		t.Fatalf("Unexpected snapshot %+v", got)
	}

	clk.Advance(DefaultTTL)
	if store.Load(ctx, KeyProducts, &got) {
		t.Error("Expected the snapshot to expire")
	}
}

func TestRedisStorageRequiresTarget(t *testing.T) {
	if _, err := NewRedisStorage(context.Background(), RedisOptions{}); err == nil {
		t.Error("Expected an error without url or client")
	}
	if _, err := NewRedisStorage(context.Background(), RedisOptions{URL: "://bad"}); err == nil {
		t.Error("Expected an error for an invalid url")
	}
}
