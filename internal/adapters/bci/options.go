package bci

import (
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithOrigin sets the Origin header sent on the handshake.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		if origin != "" {
			c.origin = origin
		}
	}
}

// WithDialTimeout bounds the connection attempt.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
