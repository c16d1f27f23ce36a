// Package worker drains BCI samples on a fixed tick and drives avatar
// reactions from the latest one.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
	"github.com/okian/markerrig/pkg/metrics"
)

// Default pump configuration constants.
const (
	defaultTick = 50 * time.Millisecond
)

// Source yields queued samples without blocking.
type Source interface {
	TryDequeue() (model.Sample, bool)
}

// Driver decides whether a valence/arousal pair triggers a reaction.
type Driver interface {
	Observe(now time.Time, valence, arousal float64) (model.Reaction, bool)
}

// Sink receives triggered reactions.
type Sink interface {
	React(ctx context.Context, r model.Reaction, s model.Sample) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r model.Reaction, s model.Sample) error

// React implements Sink.
func (f SinkFunc) React(ctx context.Context, r model.Reaction, s model.Sample) error {
	return f(ctx, r, s)
}

// Pump polls a Source once per tick. All samples queued since the last
// tick are drained and only the newest is kept.
type Pump struct {
	source Source
	driver Driver
	sinks  []Sink
	tick   time.Duration
	clock  func() time.Time

	mu     sync.RWMutex
	latest model.Sample
	has    bool

	shutdown chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPump creates a pump reading from source and feeding driver.
func NewPump(source Source, driver Driver, opts ...Option) *Pump {
	p := &Pump{
		source:   source,
		driver:   driver,
		tick:     defaultTick,
		clock:    time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("pump"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the tick loop until ctx is cancelled or Shutdown is called.
func (p *Pump) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick drains the source and observes the newest sample, if any sample
// has ever arrived.
func (p *Pump) Tick(ctx context.Context) {
	drained := 0
	var last model.Sample
	for {
		s, ok := p.source.TryDequeue()
		if !ok {
			break
		}
		last = s
		drained++
	}

	p.mu.Lock()
	if drained > 0 {
		p.latest = last
		p.has = true
	}
	current, has := p.latest, p.has
	p.mu.Unlock()

	if !has {
		return
	}
	if drained > 0 {
		metrics.UpdateAffect(current.Valence, current.Arousal)
	}

	r, ok := p.driver.Observe(p.clock(), current.Valence, current.Arousal)
	if !ok {
		return
	}

	metrics.RecordReaction(r.String())
	p.logger.Info(ctx, "avatar reaction",
		logger.String("reaction", r.String()),
		logger.Float64("valence", current.Valence),
		logger.Float64("arousal", current.Arousal),
	)
	for _, s := range p.sinks {
		if err := s.React(ctx, r, current); err != nil {
			p.logger.Warn(ctx, "reaction sink failed", logger.String("reaction", r.String()), logger.Error(err))
		}
	}
}

// Latest returns the newest sample seen, or false if none has arrived.
func (p *Pump) Latest() (model.Sample, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.has
}

// Shutdown stops the loop and waits for it to exit.
func (p *Pump) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.shutdown) })

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
