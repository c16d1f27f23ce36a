package simulator

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/markerrig/internal/domain/model"
)

// Default generator configuration constants.
const (
	defaultStep    = 0.05
	defaultVersion = "sim-v1"
)

// Generator produces a bounded random walk over valence and arousal.
type Generator struct {
	rng     *rand.Rand
	step    float64
	version string
	valence float64
	arousal float64
}

// NewGenerator returns a walk starting at the neutral point (0.5, 0.5).
func NewGenerator(seed uint64, opts ...GeneratorOption) *Generator {
	g := &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // simulation only
		step:    defaultStep,
		version: defaultVersion,
		valence: 0.5,
		arousal: 0.5,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next advances the walk and returns the new sample stamped with now.
func (g *Generator) Next(now time.Time) model.Sample {
	g.valence = clamp01(g.valence + (g.rng.Float64()*2-1)*g.step)
	g.arousal = clamp01(g.arousal + (g.rng.Float64()*2-1)*g.step)
	return model.Sample{
		TS:      float64(now.UnixNano()) / float64(time.Second),
		Valence: round3(g.valence),
		Arousal: round3(g.arousal),
		Version: g.version,
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
