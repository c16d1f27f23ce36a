package reaction

import (
	"time"

	"github.com/okian/markerrig/internal/domain/affect"
)

// Option applies a configuration option to the CooldownDriver.
type Option func(*CooldownDriver)

// WithCooldown sets the quiet window after each trigger.
func WithCooldown(cooldown time.Duration) Option {
	return func(d *CooldownDriver) {
		if cooldown >= 0 {
			d.cooldown = cooldown
		}
	}
}

// WithEpsilon sets the minimum per-axis change treated as a new value.
func WithEpsilon(epsilon float64) Option {
	return func(d *CooldownDriver) {
		if epsilon > 0 {
			d.epsilon = epsilon
		}
	}
}

// WithClassifier replaces the quadrant classifier.
func WithClassifier(c affect.Classifier) Option {
	return func(d *CooldownDriver) {
		if c != nil {
			d.classifier = c
		}
	}
}
