// Package effects contains the pixel effect generators. Each generator owns
// its state and its internal period; the render loop may call Step on every
// tick and the generator decides whether it is time to draw.
package effects

import (
	"math/rand/v2"
	"time"

	"github.com/coreman2200/xmaslights/internal/render"
)

// Internal periods.
const (
	PatternPeriod = 500 * time.Millisecond
	TwinklePeriod = 200 * time.Millisecond
	CometPeriod   = 20 * time.Millisecond
	SparklePeriod = 100 * time.Millisecond
)

// Options tune generators beyond their defaults.
type Options struct {
	CometRandomFade bool
}

// Default returns the generators in catalog order. Index 0 is the effect
// the scheduler starts on.
func Default(rng *rand.Rand, o Options) []render.Effect {
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}
	comet := NewComet(rng)
	comet.RandomFade = o.CometRandomFade
	return []render.Effect{
		NewCandyCane(),
		NewTrain(),
		NewRedWhiteBlue(),
		NewRandomGreenAndRed(rng),
		NewTwinkleStar(rng),
		comet,
		NewSparkle(rng),
	}
}

// NewRand returns a deterministic source for the stochastic effects.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
