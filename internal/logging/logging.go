// Package logging 根据日志配置构建slog日志记录器
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/yourusername/shopsync/configs"
)

// Logger 包装slog.Logger，支持运行时调整级别
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	file  *os.File
}

// New 根据配置创建日志记录器
// output为file时以追加方式打开FilePath
func New(cfg configs.LogConfig) (*Logger, error) {
	var (
		w    io.Writer
		file *os.File
	)
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("logging: file path is required for file output")
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", cfg.FilePath, err)
		}
		w, file = f, f
	default:
		return nil, fmt.Errorf("logging: unknown output %q", cfg.Output)
	}

	logger, err := NewWithWriter(cfg, w)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	logger.file = file
	return logger, nil
}

// NewWithWriter 创建写入w的日志记录器，忽略Output和FilePath
func NewWithWriter(cfg configs.LogConfig, w io.Writer) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	opts := &slog.HandlerOptions{Level: levelVar, AddSource: cfg.AddSource}
	var handler slog.Handler
	switch cfg.Format {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	return &Logger{Logger: slog.New(handler), level: levelVar}, nil
}

// ParseLevel 解析debug、info、warn、error，空字符串视为info
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// SetLevel 调整最低日志级别，配置热重载时使用
func (l *Logger) SetLevel(s string) error {
	level, err := ParseLevel(s)
	if err != nil {
		return err
	}
	l.level.Set(level)
	return nil
}

// Level 返回当前最低日志级别
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close 关闭日志文件，非文件输出时无操作
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard 返回丢弃所有记录的日志记录器，用于测试
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
