package dispatch

import (
	"time"

	"github.com/okian/markerrig/internal/adapters/repository"
	"github.com/okian/markerrig/internal/adapters/transport"
	"github.com/okian/markerrig/pkg/logger"
)

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithAdvisory adds senders whose failures are logged but never fail a
// dispatch.
func WithAdvisory(senders ...transport.Sender) Option {
	return func(d *Dispatcher) {
		for _, s := range senders {
			if s != nil {
				d.advisory = append(d.advisory, s)
			}
		}
	}
}

// WithJournal records every sent marker under sessionID.
func WithJournal(j repository.Journal, sessionID string) Option {
	return func(d *Dispatcher) {
		if j != nil {
			d.journal = j
			d.session = sessionID
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.clock = now
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
