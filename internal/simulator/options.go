package simulator

import (
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// GeneratorOption applies a configuration option to the Generator.
type GeneratorOption func(*Generator)

// WithStep sets the largest per-sample move on each axis.
func WithStep(step float64) GeneratorOption {
	return func(g *Generator) {
		if step > 0 && step <= 1 {
			g.step = step
		}
	}
}

// WithVersion sets the model version stamped on samples.
func WithVersion(v string) GeneratorOption {
	return func(g *Generator) {
		if v != "" {
			g.version = v
		}
	}
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithWriteTimeout bounds a single frame write to one client.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
