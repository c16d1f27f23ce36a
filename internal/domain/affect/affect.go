// Package affect maps valence/arousal estimates onto avatar reactions.
package affect

import "github.com/okian/markerrig/internal/domain/model"

// DefaultThreshold splits each axis into low and high halves.
const DefaultThreshold = 0.5

// Classifier chooses a reaction for a valence/arousal pair.
type Classifier interface {
	Classify(valence, arousal float64) model.Reaction
}

// Option applies a configuration option to the QuadrantClassifier.
type Option func(*QuadrantClassifier)

// WithThresholds sets the valence and arousal split points.
func WithThresholds(valence, arousal float64) Option {
	return func(c *QuadrantClassifier) {
		c.valenceThreshold = valence
		c.arousalThreshold = arousal
	}
}

// QuadrantClassifier implements Classifier with fixed quadrant rules.
type QuadrantClassifier struct {
	valenceThreshold float64
	arousalThreshold float64
}

// NewQuadrantClassifier builds a classifier splitting both axes at 0.5.
func NewQuadrantClassifier(opts ...Option) *QuadrantClassifier {
	c := &QuadrantClassifier{
		valenceThreshold: DefaultThreshold,
		arousalThreshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify maps high/high to Happy, low/high to Angry, low/low to Sad.
// High valence with low arousal has no dedicated animation and falls back
// to Happy.
func (c *QuadrantClassifier) Classify(valence, arousal float64) model.Reaction {
	highV := valence > c.valenceThreshold
	highA := arousal > c.arousalThreshold
	switch {
	case highV && highA:
		return model.ReactionHappy
	case !highV && highA:
		return model.ReactionAngry
	case !highV && !highA:
		return model.ReactionSad
	default:
		return model.ReactionHappy
	}
}
