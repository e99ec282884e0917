package render

import (
	"errors"
	"time"
)

// Color is one pixel, 0..255 per channel.
type Color struct{ R, G, B uint8 }

// Params are the live tunables a generator reads on every step.
type Params struct {
	StripeWidth int
	CarLength   int
	Hue         uint8
}

// Effect advances a FrameBuffer by one step. Implementations own their state
// and their internal period; fb is only valid for the duration of the call.
// Step reports whether the buffer was modified.
type Effect interface {
	Name() string
	Step(fb *FrameBuffer, now time.Time, p Params) bool
}

// Catalog is the ordered, cyclic list of effects the scheduler rotates through.
type Catalog struct{ effects []Effect }

func NewCatalog(effects ...Effect) (*Catalog, error) {
	if len(effects) == 0 {
		return nil, errors.New("catalog has no effects")
	}
	for _, e := range effects {
		if e == nil {
			return nil, errors.New("catalog contains a nil effect")
		}
	}
	return &Catalog{effects: append([]Effect(nil), effects...)}, nil
}

func (c *Catalog) Len() int { return len(c.effects) }

// At returns the effect at i, wrapping modulo Len.
func (c *Catalog) At(i int) Effect {
	n := len(c.effects)
	return c.effects[((i%n)+n)%n]
}

func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.effects))
	for _, e := range c.effects {
		out = append(out, e.Name())
	}
	return out
}
