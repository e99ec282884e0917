package effects

import (
	"time"

	"github.com/coreman2200/xmaslights/internal/render"
)

// Train marches two blocks of CarLength pixels along the strip, one pixel per
// period. Block B starts exactly one block length after block A and both wrap
// around the end of the strip.
type Train struct {
	A, B render.Color

	gate   render.Gate
	offset int
}

func NewTrain() *Train {
	return &Train{A: render.DarkRed, B: render.DarkGreen, gate: render.NewGate(PatternPeriod)}
}

func (t *Train) Name() string { return "train" }

// Offset is where block A starts on the next draw.
func (t *Train) Offset() int { return t.offset }

// CarLength is the block length actually drawn on a strip of n pixels.
func CarLength(carLength, n int) int {
	return clamp(carLength, 1, max(1, n/2))
}

func (t *Train) Step(fb *render.FrameBuffer, now time.Time, p render.Params) bool {
	if !t.gate.Ready(now) {
		return false
	}
	n := fb.Len()
	l := CarLength(p.CarLength, n)
	t.offset %= n

	fb.Clear(true)
	for j := 0; j < l; j++ {
		fb.Set((t.offset+j)%n, t.A)
		fb.Set((t.offset+l+j)%n, t.B)
	}
	t.offset = (t.offset + 1) % n
	return true
}
