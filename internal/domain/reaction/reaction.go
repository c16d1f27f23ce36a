// Package reaction debounces valence/arousal observations into avatar
// reactions.
package reaction

import (
	"math"
	"sync"
	"time"

	"github.com/okian/markerrig/internal/domain/affect"
	"github.com/okian/markerrig/internal/domain/model"
)

// Default driver configuration constants.
const (
	DefaultCooldown = 2 * time.Second
	DefaultEpsilon  = 0.01
)

// Driver decides when a new observation should trigger a reaction.
type Driver interface {
	// Observe reports the reaction to play for (valence, arousal) observed
	// at now, or false when the observation is unchanged or falls inside
	// the cooldown window.
	Observe(now time.Time, valence, arousal float64) (model.Reaction, bool)
}

// CooldownDriver implements Driver with change detection and a fixed
// cooldown after every trigger.
type CooldownDriver struct {
	mu sync.Mutex

	classifier affect.Classifier
	cooldown   time.Duration
	epsilon    float64

	hasLast     bool
	lastValence float64
	lastArousal float64
	quietUntil  time.Time
}

// NewCooldownDriver creates a driver with configuration options.
func NewCooldownDriver(opts ...Option) *CooldownDriver {
	d := &CooldownDriver{
		classifier: affect.NewQuadrantClassifier(),
		cooldown:   DefaultCooldown,
		epsilon:    DefaultEpsilon,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe implements Driver. Changes seen during cooldown are not
// remembered, so the first poll after the window still sees them as new.
func (d *CooldownDriver) Observe(now time.Time, valence, arousal float64) (model.Reaction, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasLast && !d.changed(valence, arousal) {
		return 0, false
	}
	if now.Before(d.quietUntil) {
		return 0, false
	}

	d.hasLast = true
	d.lastValence = valence
	d.lastArousal = arousal
	d.quietUntil = now.Add(d.cooldown)

	return d.classifier.Classify(valence, arousal), true
}

func (d *CooldownDriver) changed(valence, arousal float64) bool {
	return math.Abs(valence-d.lastValence) > d.epsilon || math.Abs(arousal-d.lastArousal) > d.epsilon
}

// Reset forgets the last observation and clears the cooldown.
func (d *CooldownDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasLast = false
	d.quietUntil = time.Time{}
}
