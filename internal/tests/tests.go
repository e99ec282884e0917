// Package tests holds wiring test patterns used by the selftest command.
package tests

import "github.com/coreman2200/xmaslights/internal/render"

type Kind string

const (
	None       Kind = ""
	IndexSweep Kind = "index_sweep"
	RGBTest    Kind = "rgb_channels"
	Ends       Kind = "ends"
)

// Kinds lists the runnable patterns.
var Kinds = []Kind{IndexSweep, RGBTest, Ends}

type Plan struct {
	Kind Kind
	// Cycles bounds RGBTest; each cycle is three steps.
	Cycles int
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner {
	if plan.Cycles <= 0 {
		plan.Cycles = 1
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Step draws the next pattern frame into fb; returns false when complete.
func (r *Runner) Step(fb *render.FrameBuffer) bool {
	n := fb.Len()
	fb.Clear(true)

	switch r.plan.Kind {
	case IndexSweep:
		if r.step >= n {
			return false
		}
		fb.Set(r.step, render.White)
	case RGBTest:
		if r.step >= 3*r.plan.Cycles {
			return false
		}
		c := [3]render.Color{render.Red, {G: 0xFF}, render.Blue}[r.step%3]
		fb.Fill(c)
	case Ends:
		// First pixel green, last red: shows orientation and length at a glance.
		if r.step >= 1 {
			return false
		}
		fb.Set(0, render.Color{G: 0xFF})
		fb.Set(n-1, render.Red)
	default:
		return false
	}
	r.step++
	return true
}
