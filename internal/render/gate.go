package render

import "time"

// Gate throttles an effect to its own internal period, independent of how
// often the render loop ticks. The first check always passes.
type Gate struct {
	Period time.Duration

	last   time.Time
	primed bool
}

func NewGate(period time.Duration) Gate { return Gate{Period: period} }

// Ready reports whether a full period has elapsed since the last accepted
// check, and if so records now as the new reference.
func (g *Gate) Ready(now time.Time) bool {
	if g.primed && now.Sub(g.last) < g.Period {
		return false
	}
	g.last = now
	g.primed = true
	return true
}

// Reset makes the next check pass.
func (g *Gate) Reset() { g.primed = false }
