package productsync

import (
	"log/slog"

	"github.com/yourusername/shopsync/pkg/model"
)

// DefaultPageSize is the page size assumed when hydrating from a snapshot.
const DefaultPageSize = 8

// Option configures a Controller.
type Option func(*Controller)

// WithSession sets the active session.
func WithSession(session model.Session) Option {
	return func(c *Controller) {
		c.session = session
	}
}

// WithNotifier sets the user notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithPageSize sets the page size of the API listing.
func WithPageSize(size int) Option {
	return func(c *Controller) {
		if size > 0 {
			c.pageSize = size
		}
	}
}
