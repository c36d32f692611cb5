package productsync

import "log/slog"

// Notifier shows transient messages to the user, e.g. toasts.
//
// Notifier 向用户显示短暂的提示消息，例如toast。
type Notifier interface {
	Success(message string)
	Error(message string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Success logs message at info level.
func (n LogNotifier) Success(message string) {
	n.logger().Info(message, "notification", "success")
}

// Error logs message at warn level.
func (n LogNotifier) Error(message string) {
	n.logger().Warn(message, "notification", "error")
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}
