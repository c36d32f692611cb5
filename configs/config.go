// Package configs provides configuration structures and utilities for shopsync.
// It offers mechanisms for loading, validating, and saving configuration from various sources
// including JSON and YAML files. The package defines the configuration of every storefront
// component: the product API client, the real-time channel, the session cache and the search box.
//
// Package configs 提供shopsync的配置结构和工具。
// 它提供从各种来源（包括JSON和YAML文件）加载、验证和保存配置的机制。
// 该包定义了店面各组件的配置：商品API客户端、实时通道、会话缓存和搜索框。
package configs

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for shopsync.
// It is organized into logical sections for the different components.
//
// Config 表示shopsync的完整配置。
// 它按不同组件的逻辑部分进行组织。
type Config struct {
	// API configures the remote product API client
	// API 配置远程商品API客户端
	API APIConfig `json:"api" yaml:"api" mapstructure:"api"`

	// Realtime configures the real-time event channel
	// Realtime 配置实时事件通道
	Realtime RealtimeConfig `json:"realtime" yaml:"realtime" mapstructure:"realtime"`

	// Cache configures the session cache store and its storage backend
	// Cache 配置会话缓存存储及其存储后端
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Search configures the search box debouncing
	// Search 配置搜索框的防抖
	Search SearchConfig `json:"search" yaml:"search" mapstructure:"search"`

	// Metrics configures the Prometheus endpoint
	// Metrics 配置Prometheus端点
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// Extra allows for custom configuration options
	// Extra 允许自定义配置选项
	Extra map[string]interface{} `json:"extra,omitempty" yaml:"extra,omitempty" mapstructure:"extra"`
}

// APIConfig contains the settings of the product API client.
//
// APIConfig 包含商品API客户端的设置。
type APIConfig struct {
	// BaseURL is the absolute URL of the product API
	// BaseURL 是商品API的绝对URL
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds every HTTP request
	// Timeout 限制每个HTTP请求的时长
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// PageSize is the number of products per page
	// PageSize 是每页的商品数量
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// Token is the bearer token of the session, empty for anonymous browsing
	// Token 是会话的Bearer令牌，匿名浏览时为空
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`

	// UserID identifies the signed-in user
	// UserID 标识已登录的用户
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty" mapstructure:"user_id"`

	// Role is the session role: customer, owner or admin
	// Role 是会话角色：customer、owner或admin
	Role string `json:"role,omitempty" yaml:"role,omitempty" mapstructure:"role"`
}

// RealtimeConfig contains the settings of the real-time event channel.
//
// RealtimeConfig 包含实时事件通道的设置。
type RealtimeConfig struct {
	// Enable turns the channel on or off
	// Enable 开启或关闭通道
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// URL is the websocket URL, derived from api.base_url when empty
	// URL 是websocket地址，为空时由api.base_url推导
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`

	// MinBackoff is the first reconnect delay
	// MinBackoff 是首次重连的延迟
	MinBackoff time.Duration `json:"min_backoff" yaml:"min_backoff" mapstructure:"min_backoff"`

	// MaxBackoff caps the reconnect delay
	// MaxBackoff 是重连延迟的上限
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff" mapstructure:"max_backoff"`
}

// CacheConfig contains the settings of the session cache store.
//
// CacheConfig 包含会话缓存存储的设置。
type CacheConfig struct {
	// Name identifies the store in logs
	// Name 在日志中标识该存储
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// TTL is the freshness window of product list snapshots
	// TTL 是商品列表快照的有效期
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Codec names the payload codec: json or gob
	// Codec 指定内容编解码器：json或gob
	Codec string `json:"codec" yaml:"codec" mapstructure:"codec"`

	// Engine selects the storage backend: memory or redis
	// Engine 选择存储后端：memory或redis
	Engine string `json:"engine" yaml:"engine" mapstructure:"engine"`

	// Redis configures the redis backend
	// Redis 配置redis后端
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig contains the settings of the redis storage backend.
//
// RedisConfig 包含redis存储后端的设置。
type RedisConfig struct {
	// URL is the redis:// connection URL
	// URL 是redis://连接地址
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// Prefix is prepended to every key
	// Prefix 添加到每个键之前
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// Session scopes the records to one storefront session
	// Session 将记录限定在一个店面会话内
	Session string `json:"session" yaml:"session" mapstructure:"session"`

	// Expiry reclaims abandoned sessions on the server, 0 disables it
	// Expiry 在服务器端回收废弃的会话，0表示禁用
	Expiry time.Duration `json:"expiry" yaml:"expiry" mapstructure:"expiry"`
}

// SearchConfig contains the settings of the search box.
//
// SearchConfig 包含搜索框的设置。
type SearchConfig struct {
	// Delay is the quiet period before a search runs
	// Delay 是执行搜索前的静默期
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// AutocompleteDelay is the quiet period before suggestions are fetched
	// AutocompleteDelay 是获取建议前的静默期
	AutocompleteDelay time.Duration `json:"autocomplete_delay" yaml:"autocomplete_delay" mapstructure:"autocomplete_delay"`

	// MinLength is the shortest query that triggers autocomplete
	// MinLength 是触发自动补全的最短查询长度
	MinLength int `json:"min_length" yaml:"min_length" mapstructure:"min_length"`

	// Fuzzy enables fuzzy name matching
	// Fuzzy 启用模糊名称匹配
	Fuzzy bool `json:"fuzzy" yaml:"fuzzy" mapstructure:"fuzzy"`

	// Category restricts searches to one category, empty for all
	// Category 将搜索限制在一个分类内，为空表示全部
	Category string `json:"category,omitempty" yaml:"category,omitempty" mapstructure:"category"`
}

// MetricsConfig contains settings for the Prometheus endpoint.
//
// MetricsConfig 包含Prometheus端点的设置。
type MetricsConfig struct {
	// Enable turns the endpoint on or off
	// Enable 开启或关闭端点
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// PrometheusPort is the port the endpoint listens on
	// PrometheusPort 是端点监听的端口
	PrometheusPort int `json:"prometheus_port" yaml:"prometheus_port" mapstructure:"prometheus_port"`

	// Path is the HTTP path of the endpoint
	// Path 是端点的HTTP路径
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Namespace prefixes every metric name
	// Namespace 是每个指标名称的前缀
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
}

// LogConfig contains settings for logging.
//
// LogConfig 包含日志设置。
type LogConfig struct {
	// Level sets the minimum log level (debug, info, warn, error)
	// Level 设置最低日志级别（debug、info、warn、error）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format (text, json)
	// Format 指定日志格式（text、json）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output specifies where logs are written (stdout, stderr, file)
	// Output 指定日志写入的位置（stdout、stderr、file）
	Output string `json:"output" yaml:"output" mapstructure:"output"`

	// FilePath is the path to the log file when Output is "file"
	// FilePath 是当Output为"file"时的日志文件路径
	FilePath string `json:"file_path" yaml:"file_path" mapstructure:"file_path"`

	// AddSource includes the source position in every record
	// AddSource 在每条记录中包含源码位置
	AddSource bool `json:"add_source" yaml:"add_source" mapstructure:"add_source"`
}

// ExtensionsConfig contains settings for optional extensions.
//
// ExtensionsConfig 包含可选扩展的设置。
type ExtensionsConfig struct {
	// HotReload configures configuration hot reloading
	// HotReload 配置配置热重载
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for configuration hot reloading.
//
// HotReloadConfig 包含配置热重载的设置。
type HotReloadConfig struct {
	// Enable turns hot reloading on or off
	// Enable 开启或关闭热重载
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// WatchInterval is the polling interval used when file notifications are unavailable
	// WatchInterval 是文件通知不可用时使用的轮询间隔
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a default configuration.
// The defaults browse http://localhost:8080 anonymously with an in-memory session cache.
//
// DefaultConfig 返回默认配置。
// 默认配置以匿名方式浏览 http://localhost:8080，并使用内存会话缓存。
//
// Returns:
//   - *Config: A new configuration with default values
//
// 返回：
//   - *Config: 具有默认值的新配置
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:  "http://localhost:8080",
			Timeout:  10 * time.Second,
			PageSize: 8,
			Role:     "customer",
		},
		Realtime: RealtimeConfig{
			Enable:     true,
			MinBackoff: 500 * time.Millisecond,
			MaxBackoff: 30 * time.Second,
		},
		Cache: CacheConfig{
			Name:   "session",
			TTL:    5 * time.Minute,
			Codec:  "json",
			Engine: "memory",
			Redis: RedisConfig{
				URL:     "redis://localhost:6379/0",
				Prefix:  "shopsync:",
				Session: "default",
				Expiry:  time.Hour,
			},
		},
		Search: SearchConfig{
			Delay:             500 * time.Millisecond,
			AutocompleteDelay: 200 * time.Millisecond,
			MinLength:         2,
		},
		Metrics: MetricsConfig{
			Enable:         false,
			PrometheusPort: 9100,
			Path:           "/metrics",
			Namespace:      "shopsync",
		},
		Log: LogConfig{
			Level:    "info",
			Format:   "text",
			Output:   "stderr",
			FilePath: "shopsync.log",
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable:        false,
				WatchInterval: 30 * time.Second,
			},
		},
		Extra: make(map[string]interface{}),
	}
}

// LoadFromFile loads configuration from a file.
// It supports both YAML and JSON formats, automatically
// detecting the format based on the file extension.
//
// LoadFromFile 从文件加载配置。
// 它支持YAML和JSON格式，根据文件扩展名自动检测格式。
//
// Parameters:
//   - filename: Path to the configuration file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
//
// 参数：
//   - filename: 配置文件的路径
//
// 返回：
//   - *Config: 加载的配置
//   - error: 如果加载失败则返回错误
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case "yaml", "yml", "json":
	default:
		return nil, fmt.Errorf("unsupported configuration file format: .%s", ext)
	}

	return LoadFromReader(file, ext)
}

// LoadFromReader loads configuration from an io.Reader.
// Keys missing from the input keep their default values.
//
// LoadFromReader 从io.Reader加载配置。
// 输入中缺失的键保留其默认值。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
//
// Returns:
//   - *Config: The loaded configuration
//   - error: An error if loading fails
//
// 参数：
//   - r: 提供配置数据的读取器
//   - format: 数据的格式（"json"、"yaml"或"yml"）
//
// 返回：
//   - *Config: 加载的配置
//   - error: 如果加载失败则返回错误
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
		if err == io.EOF {
			err = nil
		}
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
// It supports both YAML and JSON formats, automatically
// selecting the format based on the file extension.
//
// SaveToFile 将配置保存到文件。
// 它支持YAML和JSON格式，根据文件扩展名自动选择格式。
//
// Parameters:
//   - filename: Path where the configuration will be saved
//
// Returns:
//   - error: An error if saving fails
//
// 参数：
//   - filename: 配置将保存的路径
//
// 返回：
//   - error: 如果保存失败则返回错误
func (c *Config) SaveToFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	switch ext {
	case ".yaml", ".yml":
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		err = encoder.Encode(c)
	default:
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	}

	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	return nil
}

// Validate validates the configuration.
// It checks that all settings have valid values and
// that there are no conflicts or inconsistencies.
//
// Validate 验证配置。
// 它检查所有设置是否具有有效值，
// 并且没有冲突或不一致。
//
// Returns:
//   - error: An error describing the validation failure, or nil if valid
//
// 返回：
//   - error: 描述验证失败的错误，如果有效则为nil
func (c *Config) Validate() error {
	// Validate api settings
	// 验证API设置
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive")
	}
	switch c.API.Role {
	case "", "customer", "owner", "admin":
		// Valid roles
		// 有效角色
	default:
		return fmt.Errorf("api.role must be one of: customer, owner, admin")
	}

	// Validate realtime settings
	// 验证实时通道设置
	if c.Realtime.Enable {
		if c.Realtime.MinBackoff <= 0 {
			return fmt.Errorf("realtime.min_backoff must be positive")
		}
		if c.Realtime.MaxBackoff < c.Realtime.MinBackoff {
			return fmt.Errorf("realtime.max_backoff must not be less than realtime.min_backoff")
		}
	}

	// Validate cache settings
	// 验证缓存设置
	if c.Cache.Name == "" {
		return fmt.Errorf("cache.name cannot be empty")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	switch c.Cache.Codec {
	case "json", "gob":
		// Valid codecs
		// 有效编解码器
	default:
		return fmt.Errorf("cache.codec must be one of: json, gob")
	}
	switch c.Cache.Engine {
	case "memory":
	case "redis":
		if c.Cache.Redis.URL == "" {
			return fmt.Errorf("cache.redis.url must be specified when cache.engine is 'redis'")
		}
		if c.Cache.Redis.Expiry < 0 {
			return fmt.Errorf("cache.redis.expiry must be non-negative")
		}
	default:
		return fmt.Errorf("cache.engine must be one of: memory, redis")
	}

	// Validate search settings
	// 验证搜索设置
	if c.Search.Delay <= 0 {
		return fmt.Errorf("search.delay must be positive")
	}
	if c.Search.AutocompleteDelay <= 0 {
		return fmt.Errorf("search.autocomplete_delay must be positive")
	}
	if c.Search.MinLength < 1 {
		return fmt.Errorf("search.min_length must be at least 1")
	}

	// Validate metrics settings
	// 验证指标设置
	if c.Metrics.Enable {
		if c.Metrics.PrometheusPort <= 0 || c.Metrics.PrometheusPort > 65535 {
			return fmt.Errorf("metrics.prometheus_port must be between 1 and 65535")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/'")
		}
	}

	// Validate log settings
	// 验证日志设置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
		// 有效级别
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
		// Valid formats
		// 有效格式
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	switch c.Log.Output {
	case "stdout", "stderr", "file":
		// Valid outputs
		// 有效输出
	default:
		return fmt.Errorf("log.output must be one of: stdout, stderr, file")
	}
	if c.Log.Output == "file" && c.Log.FilePath == "" {
		return fmt.Errorf("log.file_path must be specified when log.output is 'file'")
	}

	// Validate extensions settings
	// 验证扩展设置
	if c.Extensions.HotReload.Enable && c.Extensions.HotReload.WatchInterval < time.Second {
		return fmt.Errorf("extensions.hot_reload.watch_interval must be at least 1 second")
	}

	return nil
}
