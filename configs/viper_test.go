// Package configs provides configuration structures and utilities for shopsync.
// This file contains tests for the Viper-based configuration functionality.
//
// Package configs 提供shopsync的配置结构和工具。
// 本文件包含基于Viper的配置功能的测试。
package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig replaces the file atomically so that a watcher never reads a partial write.
func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Failed to replace config: %v", err)
	}
}

// TestViperConfig verifies file values, defaults for missing keys and
// SHOPSYNC_* environment overrides.
//
// TestViperConfig 验证文件中的值、缺失键的默认值以及SHOPSYNC_*环境变量覆盖。
func TestViperConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsync.yaml")
	writeConfig(t, path, `
api:
  base_url: "http://127.0.0.1:9000"
  page_size: 6
cache:
  ttl: 1m
  engine: memory
`)
	t.Setenv("SHOPSYNC_API_TOKEN", "secret")
	t.Setenv("SHOPSYNC_SEARCH_MIN_LENGTH", "3")

	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("Failed to load viper config: %v", err)
	}
	config := vc.Get()

	if config.API.BaseURL != "http://127.0.0.1:9000" || config.API.PageSize != 6 {
		t.Errorf("Unexpected api section %+v", config.API)
	}
	if config.Cache.TTL != time.Minute {
		t.Errorf("Expected Cache.TTL to be 1m, got %s", config.Cache.TTL)
	}
	if config.Search.Delay != 500*time.Millisecond {
		t.Errorf("Expected the default search delay, got %s", config.Search.Delay)
	}
	if config.API.Token != "secret" {
		t.Errorf("Expected the token from the environment, got %q", config.API.Token)
	}
	if config.Search.MinLength != 3 {
		t.Errorf("Expected Search.MinLength from the environment, got %d", config.Search.MinLength)
	}
}

// TestViperConfigInvalid verifies that an invalid file is rejected.
//
// TestViperConfigInvalid 验证无效的文件会被拒绝。
func TestViperConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsync.yaml")
	writeConfig(t, path, "cache:\n  engine: disk\n")
	if _, err := NewViperConfig(path); err == nil {
		t.Error("Expected an error for an invalid engine")
	}
	if _, err := NewViperConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

// TestViperConfigReload verifies that subscribers are notified only when the file
// changes into a valid, different configuration.
//
// TestViperConfigReload 验证仅当文件变为有效且不同的配置时才通知订阅者。
func TestViperConfigReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsync.yaml")
	writeConfig(t, path, "search:\n  delay: 400ms\n")

	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("Failed to load viper config: %v", err)
	}

	var notified []*Config
	vc.Subscribe(func(c *Config) { notified = append(notified, c) })

	// Unchanged file
	// 文件未更改
	changed, err := vc.Reload()
	if err != nil || changed {
		t.Fatalf("Reload() = %v, %v; want no change", changed, err)
	}

	writeConfig(t, path, "search:\n  delay: 250ms\n")
	changed, err = vc.Reload()
	if err != nil || !changed {
		t.Fatalf("Reload() = %v, %v; want a change", changed, err)
	}
	if len(notified) != 1 || notified[0].Search.Delay != 250*time.Millisecond {
		t.Fatalf("Unexpected notifications %+v", notified)
	}
	if vc.Get().Search.Delay != 250*time.Millisecond {
		t.Errorf("Get() did not return the reloaded config")
	}

	// Invalid change keeps the current config
	// 无效的更改保留当前配置
	writeConfig(t, path, "search:\n  min_length: 0\n")
	if _, err := vc.Reload(); err == nil {
		t.Error("Expected an invalid reload to fail")
	}
	if len(notified) != 1 || vc.Get().Search.Delay != 250*time.Millisecond {
		t.Error("An invalid reload must not replace the config")
	}
}

// TestLoadViperConfigWithWatcher verifies that the polling watcher picks up changes.
//
// TestLoadViperConfigWithWatcher 验证轮询监视器能发现更改。
func TestLoadViperConfigWithWatcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopsync.yaml")
	writeConfig(t, path, "api:\n  page_size: 8\n")

	vc, err := LoadViperConfigWithWatcher(path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to load viper config: %v", err)
	}
	defer vc.Close()

	updates := make(chan *Config, 4)
	vc.Subscribe(func(c *Config) { updates <- c })

	writeConfig(t, path, "api:\n  page_size: 16\n")
	select {
	case c := <-updates:
		if c.API.PageSize != 16 {
			t.Errorf("Expected page size 16, got %d", c.API.PageSize)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watcher did not report the change")
	}

	if _, err := LoadViperConfigWithWatcher(path, 0); err == nil {
		t.Error("Expected an error for a zero interval")
	}
}

// TestConfigsEqual tests the configsEqual helper function to ensure it correctly
// identifies when two configurations are equal or different.
//
// TestConfigsEqual 测试configsEqual辅助函数，确保它能正确识别
// 两个配置何时相等或不同。
func TestConfigsEqual(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	if !configsEqual(config1, config2) {
		t.Error("configsEqual() returned false for identical configs")
	}

	config2.Cache.TTL = time.Minute
	if configsEqual(config1, config2) {
		t.Error("configsEqual() returned true for different configs")
	}
}
