package effects

import (
	"time"

	"github.com/coreman2200/xmaslights/internal/render"
)

// RedWhiteBlue repeats three equal stripes of StripeWidth and rotates them one
// pixel per period.
type RedWhiteBlue struct {
	Colors [3]render.Color

	gate   render.Gate
	offset int
}

func NewRedWhiteBlue() *RedWhiteBlue {
	return &RedWhiteBlue{
		Colors: [3]render.Color{render.DarkBlue, render.White, render.DarkRed},
		gate:   render.NewGate(PatternPeriod),
	}
}

func (r *RedWhiteBlue) Name() string { return "redwhiteblue" }

func (r *RedWhiteBlue) Offset() int { return r.offset }

func (r *RedWhiteBlue) Step(fb *render.FrameBuffer, now time.Time, p render.Params) bool {
	if !r.gate.Ready(now) {
		return false
	}
	n := fb.Len()
	w := clamp(p.StripeWidth, 1, n)
	r.offset %= n

	fb.Clear(true)
	for i := 0; i < n; i++ {
		fb.Set((i+r.offset)%n, r.Colors[(i%(3*w))/w])
	}
	r.offset = (r.offset + 1) % n
	return true
}
