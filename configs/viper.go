// Package configs provides configuration structures and utilities for shopsync.
// This file implements Viper-based configuration management with hot reloading support.
//
// Package configs 提供shopsync的配置结构和工具。
// 本文件实现基于Viper的配置管理，支持热重载。
package configs

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables that override configuration keys,
// e.g. SHOPSYNC_API_BASE_URL overrides api.base_url.
//
// EnvPrefix 是覆盖配置键的环境变量前缀，
// 例如 SHOPSYNC_API_BASE_URL 覆盖 api.base_url。
const EnvPrefix = "SHOPSYNC"

// ViperConfig wraps a Config with Viper functionality for hot reloading.
// It provides thread-safe access to configuration and supports dynamic
// updates when the underlying configuration file changes.
//
// ViperConfig 使用Viper功能包装Config以支持热重载。
// 它提供对配置的线程安全访问，并支持在底层配置文件更改时进行动态更新。
type ViperConfig struct {
	config      *Config         // Current configuration / 当前配置
	viper       *viper.Viper    // Viper instance for configuration management / 用于配置管理的Viper实例
	configFile  string          // Path to the configuration file / 配置文件路径
	logger      *slog.Logger    // Logger for reload events / 重载事件的日志记录器
	mu          sync.RWMutex    // Mutex for thread-safe access / 用于线程安全访问的互斥锁
	subscribers []func(*Config) // List of subscribers to notify on config changes / 配置更改时要通知的订阅者列表
	stop        chan struct{}   // Closed to stop the polling watcher / 关闭时停止轮询监视器
	stopOnce    sync.Once
}

// NewViperConfig creates a new ViperConfig.
// It loads configuration from the specified file, applies SHOPSYNC_* environment
// overrides and validates the result. Keys missing from the file keep their defaults.
//
// NewViperConfig 创建一个新的ViperConfig。
// 它从指定的文件加载配置，应用SHOPSYNC_*环境变量覆盖并验证结果。
// 文件中缺失的键保留默认值。
//
// Parameters:
//   - configFile: Path to the configuration file
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading or validation fails
//
// 参数：
//   - configFile: 配置文件的路径
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载或验证失败则返回错误
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()

	// Register defaults so that environment overrides apply to every key
	// 注册默认值，使环境变量覆盖对每个键生效
	if err := registerDefaults(v); err != nil {
		return nil, err
	}

	// Set up viper
	// 设置viper
	v.SetConfigFile(configFile)
	ext := filepath.Ext(configFile)
	v.SetConfigType(strings.TrimPrefix(ext, "."))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file
	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		config:      config,
		viper:       v,
		configFile:  configFile,
		logger:      slog.Default(),
		subscribers: make([]func(*Config), 0),
		stop:        make(chan struct{}),
	}, nil
}

// SetLogger replaces the logger used for reload events.
//
// SetLogger 替换用于重载事件的日志记录器。
func (vc *ViperConfig) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	vc.mu.Lock()
	vc.logger = logger
	vc.mu.Unlock()
}

// EnableHotReload enables hot reloading of the configuration file.
// When the configuration file changes, the configuration is automatically
// reloaded and all subscribers are notified. An invalid file is logged and ignored.
//
// EnableHotReload 启用配置文件的热重载。
// 当配置文件更改时，配置会自动重新加载，并通知所有订阅者。无效的文件会被记录并忽略。
func (vc *ViperConfig) EnableHotReload() {
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		vc.log().Info("config file changed", "file", e.Name, "op", e.Op.String())
		if _, err := vc.apply(); err != nil {
			vc.log().Warn("config reload rejected", "error", err)
		}
	})
	vc.viper.WatchConfig()
}

// Reload re-reads the configuration file and notifies subscribers if it changed.
//
// Reload 重新读取配置文件，如果配置已更改则通知订阅者。
//
// Returns:
//   - bool: True if the configuration changed
//   - error: An error if reading, decoding or validation fails
//
// 返回：
//   - bool: 如果配置已更改则为true
//   - error: 如果读取、解析或验证失败则返回错误
func (vc *ViperConfig) Reload() (bool, error) {
	if err := vc.viper.ReadInConfig(); err != nil {
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return vc.apply()
}

// Subscribe adds a subscriber that will be notified when the configuration changes.
// The subscriber function is called with the new configuration as its argument.
//
// Subscribe 添加一个在配置更改时将被通知的订阅者。
// 订阅者函数将以新配置作为其参数被调用。
//
// Parameters:
//   - subscriber: A function to call when the configuration changes
//
// 参数：
//   - subscriber: 配置更改时要调用的函数
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
// This method is thread-safe and can be called concurrently.
// The returned value must be treated as read-only.
//
// Get 返回当前配置。
// 此方法是线程安全的，可以并发调用。返回值必须视为只读。
//
// Returns:
//   - *Config: The current configuration
//
// 返回：
//   - *Config: 当前配置
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.config
}

// Close stops the polling watcher started by LoadViperConfigWithWatcher.
//
// Close 停止由LoadViperConfigWithWatcher启动的轮询监视器。
func (vc *ViperConfig) Close() {
	vc.stopOnce.Do(func() { close(vc.stop) })
}

// apply decodes the settings viper currently holds and swaps them in when they differ.
func (vc *ViperConfig) apply() (bool, error) {
	newConfig, err := decode(vc.viper)
	if err != nil {
		return false, err
	}

	vc.mu.Lock()
	if configsEqual(vc.config, newConfig) {
		vc.mu.Unlock()
		return false, nil
	}
	vc.config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	// Notify subscribers
	// 通知订阅者
	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
	return true, nil
}

func (vc *ViperConfig) log() *slog.Logger {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.logger
}

// LoadViperConfig loads a configuration from a file using Viper.
// It optionally enables hot reloading based on the enableHotReload parameter.
//
// LoadViperConfig 使用Viper从文件加载配置。
// 它根据enableHotReload参数可选地启用热重载。
//
// Parameters:
//   - configFile: Path to the configuration file
//   - enableHotReload: Whether to enable hot reloading
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading fails
//
// 参数：
//   - configFile: 配置文件的路径
//   - enableHotReload: 是否启用热重载
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载失败则返回错误
func LoadViperConfig(configFile string, enableHotReload bool) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	if enableHotReload {
		vc.EnableHotReload()
	}

	return vc, nil
}

// LoadViperConfigWithWatcher loads a configuration from a file using Viper and sets up a watcher
// that periodically checks for changes in the configuration file.
// This is an alternative to fsnotify-based hot reloading for file systems without notifications.
// Call Close to stop the watcher.
//
// LoadViperConfigWithWatcher 使用Viper从文件加载配置，并设置一个定期检查
// 配置文件变化的监视器。这是在没有文件通知的文件系统上替代基于fsnotify热重载的方案。
// 调用Close停止监视器。
//
// Parameters:
//   - configFile: Path to the configuration file
//   - watchInterval: How often to check for changes
//
// Returns:
//   - *ViperConfig: A new ViperConfig instance
//   - error: An error if loading fails
//
// 参数：
//   - configFile: 配置文件的路径
//   - watchInterval: 检查更改的频率
//
// 返回：
//   - *ViperConfig: 一个新的ViperConfig实例
//   - error: 如果加载失败则返回错误
func LoadViperConfigWithWatcher(configFile string, watchInterval time.Duration) (*ViperConfig, error) {
	if watchInterval <= 0 {
		return nil, fmt.Errorf("watch interval must be positive")
	}

	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	// Start a goroutine to watch for changes
	// 启动一个goroutine来监视更改
	go func() {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-vc.stop:
				return
			case <-ticker.C:
			}

			changed, err := vc.Reload()
			if err != nil {
				vc.log().Warn("config reload rejected", "file", configFile, "error", err)
				continue
			}
			if changed {
				vc.log().Info("config file changed", "file", configFile)
			}
		}
	}()

	return vc, nil
}

// registerDefaults registers every key of DefaultConfig with viper.
func registerDefaults(v *viper.Viper) error {
	raw, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode default configuration: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("failed to decode default configuration: %w", err)
	}
	setDefaults(v, "", tree)

	// Optional keys are omitted from the encoded defaults
	// 可选键不会出现在编码后的默认值中
	for _, key := range []string{"api.token", "api.user_id", "realtime.url", "search.category"} {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if nested, ok := value.(map[string]interface{}); ok {
			setDefaults(v, prefix+key+".", nested)
			continue
		}
		v.SetDefault(prefix+key, value)
	}
}

// decode unmarshals and validates the settings viper currently holds.
func decode(v *viper.Viper) (*Config, error) {
	// Create config
	// 创建配置
	config := DefaultConfig()

	// Unmarshal the settings into the config struct
	// 将设置解析到配置结构中
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	// 验证配置
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// configsEqual checks if two configs are equal.
//
// configsEqual 检查两个配置是否相等。
//
// Parameters:
//   - c1: First configuration to compare
//   - c2: Second configuration to compare
//
// Returns:
//   - bool: True if the configurations are equal, false otherwise
//
// 参数：
//   - c1: 要比较的第一个配置
//   - c2: 要比较的第二个配置
//
// 返回：
//   - bool: 如果配置相等则为true，否则为false
func configsEqual(c1, c2 *Config) bool {
	return reflect.DeepEqual(c1, c2)
}
