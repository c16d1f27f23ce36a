package service

import (
	"io"

	"github.com/okian/markerrig/internal/sequencer"
	"github.com/okian/markerrig/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInput sets the keypad stream. It is only read when the config
// enables keypad input.
func WithInput(r io.Reader) Option {
	return func(s *Service) {
		s.input = r
	}
}

// WithPlayer replaces the player chosen from config.
func WithPlayer(p sequencer.Player) Option {
	return func(s *Service) {
		if p != nil {
			s.player = p
		}
	}
}

// WithSequencerOptions appends options passed to the sequencer after the
// ones derived from config.
func WithSequencerOptions(opts ...sequencer.Option) Option {
	return func(s *Service) {
		s.seqOpts = append(s.seqOpts, opts...)
	}
}
