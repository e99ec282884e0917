package effects

import (
	"math/rand/v2"
	"time"

	"github.com/coreman2200/xmaslights/internal/render"
)

// Comet bounces a bright head between the ends of the strip, leaving a tail
// that fades towards black each step. With RandomFade only pixels picked by a
// coin flip fade on a given step, which thins the tail unevenly.
type Comet struct {
	Size       int
	FadeAmount uint8
	RandomFade bool

	gate render.Gate
	rng  *rand.Rand
	pos  int
	dir  int
}

func NewComet(rng *rand.Rand) *Comet {
	return &Comet{
		Size:       10,
		FadeAmount: 64,
		gate:       render.NewGate(CometPeriod),
		rng:        rng,
		dir:        1,
	}
}

func (c *Comet) Name() string { return "comet" }

// Position returns the head start and the travel direction (+1 or -1).
func (c *Comet) Position() (int, int) { return c.pos, c.dir }

func (c *Comet) Step(fb *render.FrameBuffer, now time.Time, p render.Params) bool {
	if !c.gate.Ready(now) {
		return false
	}
	n := fb.Len()
	size := clamp(c.Size, 1, n)
	limit := n - size

	c.pos = clamp(c.pos+c.dir, 0, limit)
	if c.pos == limit {
		c.dir = -1
	}
	if c.pos == 0 {
		c.dir = 1
	}

	head := render.Hue(p.Hue)
	for i := 0; i < size; i++ {
		fb.Set(c.pos+i, head)
	}
	for j := 0; j < n; j++ {
		if c.RandomFade && c.rng != nil && c.rng.IntN(2) == 0 {
			continue
		}
		fb.Fade(j, c.FadeAmount)
	}
	return true
}
