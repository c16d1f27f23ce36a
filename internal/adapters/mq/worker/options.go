package worker

import (
	"time"

	"github.com/okian/markerrig/pkg/logger"
)

// Option applies a configuration option to the Pump.
type Option func(*Pump)

// WithTick sets the drain interval.
func WithTick(d time.Duration) Option {
	return func(p *Pump) {
		if d > 0 {
			p.tick = d
		}
	}
}

// WithSinks adds reaction sinks.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pump) {
		for _, s := range sinks {
			if s != nil {
				p.sinks = append(p.sinks, s)
			}
		}
	}
}

// WithClock overrides the time source passed to the driver.
func WithClock(now func() time.Time) Option {
	return func(p *Pump) {
		if now != nil {
			p.clock = now
		}
	}
}

// WithLogger sets a custom logger for the pump.
func WithLogger(l logger.Logger) Option {
	return func(p *Pump) {
		if l != nil {
			p.logger = l
		}
	}
}
