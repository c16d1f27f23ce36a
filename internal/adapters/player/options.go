package player

import "github.com/okian/markerrig/pkg/logger"

// Option applies a configuration option to the ExecPlayer.
type Option func(*ExecPlayer)

// WithLogger sets a custom logger for the player.
func WithLogger(l logger.Logger) Option {
	return func(p *ExecPlayer) {
		if l != nil {
			p.logger = l
		}
	}
}
