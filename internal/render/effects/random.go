package effects

import (
	"math/rand/v2"
	"time"

	"github.com/coreman2200/xmaslights/internal/render"
)

// RandomGreenAndRed sets every pixel to red or green each period. A pixel is
// red when a roll of 0..9 comes up above 5, i.e. 40% red, 60% green.
type RandomGreenAndRed struct {
	Red, Green render.Color

	gate render.Gate
	rng  *rand.Rand
}

func NewRandomGreenAndRed(rng *rand.Rand) *RandomGreenAndRed {
	return &RandomGreenAndRed{
		Red:   render.DarkRed,
		Green: render.DarkGreen,
		gate:  render.NewGate(PatternPeriod),
		rng:   rng,
	}
}

func (r *RandomGreenAndRed) Name() string { return "randomgreenandred" }

func (r *RandomGreenAndRed) Step(fb *render.FrameBuffer, now time.Time, _ render.Params) bool {
	if !r.gate.Ready(now) {
		return false
	}
	for i := 0; i < fb.Len(); i++ {
		if r.rng.IntN(10) > 5 {
			fb.Set(i, r.Red)
		} else {
			fb.Set(i, r.Green)
		}
	}
	return true
}

// Sparkle gives every pixel an independent random color from a small
// palette each period. Black is in the palette twice so gaps are common.
type Sparkle struct {
	Palette []render.Color

	gate render.Gate
	rng  *rand.Rand
}

func NewSparkle(rng *rand.Rand) *Sparkle {
	return &Sparkle{
		Palette: []render.Color{render.Black, render.Red, render.Green, render.Blue, render.White, render.Black},
		gate:    render.NewGate(SparklePeriod),
		rng:     rng,
	}
}

func (s *Sparkle) Name() string { return "sparkle" }

func (s *Sparkle) Step(fb *render.FrameBuffer, now time.Time, _ render.Params) bool {
	if !s.gate.Ready(now) {
		return false
	}
	for i := 0; i < fb.Len(); i++ {
		fb.Set(i, s.Palette[s.rng.IntN(len(s.Palette))])
	}
	return true
}

// TwinkleStar lights one random pixel in a random palette color each period
// and wipes the strip every Len/4 periods so the stars never fill it.
type TwinkleStar struct {
	Palette []render.Color

	gate   render.Gate
	rng    *rand.Rand
	passes int
}

func NewTwinkleStar(rng *rand.Rand) *TwinkleStar {
	return &TwinkleStar{
		Palette: []render.Color{render.Red, render.Blue, render.Purple, render.Green, render.Orange},
		gate:    render.NewGate(TwinklePeriod),
		rng:     rng,
	}
}

func (t *TwinkleStar) Name() string { return "twinklestar" }

// Passes is the number of stars drawn since the last wipe.
func (t *TwinkleStar) Passes() int { return t.passes }

func (t *TwinkleStar) Step(fb *render.FrameBuffer, now time.Time, _ render.Params) bool {
	if !t.gate.Ready(now) {
		return false
	}
	n := fb.Len()
	t.passes++
	if t.passes >= max(1, n/4) {
		t.passes = 0
		fb.Clear(true)
	}
	fb.Set(t.rng.IntN(n), t.Palette[t.rng.IntN(len(t.Palette))])
	return true
}
