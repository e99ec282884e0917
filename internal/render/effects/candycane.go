package effects

import (
	"time"

	"github.com/coreman2200/xmaslights/internal/render"
)

// CandyCane draws alternating background/accent stripes and rotates the
// pattern one pixel per period. Stripe placement is taken modulo the strip
// length, so a partial stripe shows at the seam when the length is not a
// multiple of twice the stripe width.
type CandyCane struct {
	Background render.Color
	Accent     render.Color

	gate   render.Gate
	offset int
}

func NewCandyCane() *CandyCane {
	return &CandyCane{
		Background: render.White,
		Accent:     render.DarkRed,
		gate:       render.NewGate(PatternPeriod),
	}
}

func (c *CandyCane) Name() string { return "candycane" }

// Offset is the rotation applied on the next draw.
func (c *CandyCane) Offset() int { return c.offset }

func (c *CandyCane) Step(fb *render.FrameBuffer, now time.Time, p render.Params) bool {
	if !c.gate.Ready(now) {
		return false
	}
	n := fb.Len()
	w := clamp(p.StripeWidth, 1, n)
	c.offset %= n
	for j := 0; j < n; j++ {
		k := ((j-c.offset)%n + n) % n
		if k%(2*w) < w {
			fb.Set(j, c.Accent)
		} else {
			fb.Set(j, c.Background)
		}
	}
	c.offset = (c.offset + 1) % n
	return true
}
