package conn

import (
	"log/slog"
	"time"
)

// DefaultRescheduleInterval bounds how long a dispatching caller stays
// suspended before competing for the connection again.
const DefaultRescheduleInterval = time.Millisecond

type config struct {
	logger   *slog.Logger
	interval time.Duration
	id       string
}

// Option configures a Conn.
type Option func(*config)

// WithLogger sets the logger. By default records go to the process-wide
// debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRescheduleInterval sets the longest suspension of a dispatching caller.
func WithRescheduleInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithID sets the identifier attached to log records. A random UUID is used
// otherwise.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}
