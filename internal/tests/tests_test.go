package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/xmaslights/internal/render"
)

type nopDriver struct{}

func (nopDriver) Write([]byte) error { return nil }

func newBuffer(t *testing.T, n int) *render.FrameBuffer {
	t.Helper()
	fb, err := render.NewFrameBuffer(render.Options{MaxLights: n, Brightness: 255, Driver: nopDriver{}})
	require.NoError(t, err)
	return fb
}

func lit(fb *render.FrameBuffer) []int {
	var out []int
	for i, c := range fb.Pixels() {
		if c != render.Black {
			out = append(out, i)
		}
	}
	return out
}

func TestIndexSweep(t *testing.T) {
	fb := newBuffer(t, 4)
	r := NewRunner(Plan{Kind: IndexSweep})
	for i := 0; i < 4; i++ {
		require.True(t, r.Step(fb))
		assert.Equal(t, []int{i}, lit(fb))
	}
	assert.False(t, r.Step(fb))
	assert.Empty(t, lit(fb), "finished sweep leaves the strip dark")
}

func TestRGBCycles(t *testing.T) {
	fb := newBuffer(t, 3)
	r := NewRunner(Plan{Kind: RGBTest, Cycles: 2})
	var firsts []render.Color
	for r.Step(fb) {
		firsts = append(firsts, fb.At(0))
	}
	assert.Equal(t, []render.Color{
		render.Red, {G: 0xFF}, render.Blue,
		render.Red, {G: 0xFF}, render.Blue,
	}, firsts)
}

func TestEnds(t *testing.T) {
	fb := newBuffer(t, 10)
	r := NewRunner(Plan{Kind: Ends})
	require.True(t, r.Step(fb))
	assert.Equal(t, []int{0, 9}, lit(fb))
	assert.False(t, r.Step(fb))
}

func TestUnknownKindStops(t *testing.T) {
	assert.False(t, NewRunner(Plan{Kind: "plane_z"}).Step(newBuffer(t, 1)))
}
