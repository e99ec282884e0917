package app

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/xmaslights/internal/events"
	"github.com/coreman2200/xmaslights/internal/led"
	"github.com/coreman2200/xmaslights/internal/render"
	"github.com/coreman2200/xmaslights/internal/render/effects"
	"github.com/coreman2200/xmaslights/internal/sequence"
	"github.com/coreman2200/xmaslights/internal/settings"
)

type fakeLink struct {
	polls     int
	connected bool
}

func (f *fakeLink) Poll(time.Duration) int { f.polls++; return 0 }
func (f *fakeLink) Connected() bool        { return f.connected }

type harness struct {
	clock clockwork.FakeClock
	drv   *led.Fake
	fb    *render.FrameBuffer
	port  *settings.Port
	link  *fakeLink
	loop  *Loop
	train *effects.Train
}

const frame = 20 * time.Millisecond

func newHarness(t *testing.T, budgetMW float64, bus *events.Bus) *harness {
	t.Helper()
	h := &harness{
		clock: clockwork.NewFakeClock(),
		drv:   &led.Fake{},
		link:  &fakeLink{},
	}
	fb, err := render.NewFrameBuffer(render.Options{
		MaxLights:  150,
		Brightness: 128,
		BudgetMW:   budgetMW,
		Driver:     h.drv,
		Clock:      h.clock,
	})
	require.NoError(t, err)
	h.fb = fb

	gens := effects.Default(effects.NewRand(1), effects.Options{})
	cat, err := render.NewCatalog(gens...)
	require.NoError(t, err)
	h.train = gens[1].(*effects.Train)

	h.port = settings.NewPort(&settings.MemStore{}, settings.Defaults(), zerolog.Nop())
	h.loop, err = NewLoop(LoopOptions{
		FB:                  fb,
		Catalog:             cat,
		Config:              h.port,
		Link:                h.link,
		Bus:                 bus,
		Clock:               h.clock,
		Log:                 zerolog.Nop(),
		FrameInterval:       frame,
		PauseWhileConnected: true,
	})
	require.NoError(t, err)
	return h
}

// runUntil ticks every frame until the clock reaches start+at.
func (h *harness) runUntil(start time.Time, at time.Duration) {
	for h.clock.Now().Before(start.Add(at)) {
		h.clock.Advance(frame)
		h.loop.Tick(h.clock.Now())
	}
}

func blank(fb *render.FrameBuffer) bool {
	for _, c := range fb.Pixels() {
		if c != render.Black {
			return false
		}
	}
	return true
}

func TestLoopEndToEnd(t *testing.T) {
	h := newHarness(t, 0, nil)
	start := h.clock.Now()
	h.loop.Tick(start)
	assert.Equal(t, 0, h.loop.Scheduler().Index())
	assert.Equal(t, "candycane", h.loop.Status().Name)

	h.runUntil(start, 5*time.Second-frame)
	assert.Equal(t, 0, h.loop.Scheduler().Index())
	assert.False(t, blank(h.fb))

	h.runUntil(start, 5*time.Second)
	assert.Equal(t, 1, h.loop.Scheduler().Index(), "switch lands exactly at the interval")
	assert.True(t, blank(h.fb), "buffer is cleared on transition")

	h.runUntil(start, 6*time.Second-frame)
	require.Equal(t, 1, h.loop.Scheduler().Index())
	offset := h.train.Offset()
	require.Positive(t, offset)

	require.NoError(t, h.port.WriteLive(settings.FieldRun, 0))
	h.runUntil(start, 20*time.Second)
	assert.Equal(t, 1, h.loop.Scheduler().Index(), "index frozen while stopped")
	assert.Equal(t, sequence.Suspended, h.loop.Scheduler().State)
	assert.True(t, blank(h.fb))
	assert.Equal(t, make([]byte, 150*3), h.drv.Last(), "dark frames keep being pushed")
	assert.Equal(t, offset, h.train.Offset())

	require.NoError(t, h.port.WriteLive(settings.FieldRun, 1))
	h.runUntil(start, 20*time.Second+frame)
	assert.Equal(t, 1, h.loop.Scheduler().Index())
	assert.Equal(t, offset+1, h.train.Offset(), "train resumes where it stopped")
	assert.Equal(t, h.train.A, h.fb.At(offset))

	// One second of the interval ran before the stop (5s to 6s); the
	// remaining four count from the resume at 20.02s.
	h.runUntil(start, 24*time.Second)
	assert.Equal(t, 1, h.loop.Scheduler().Index())
	h.runUntil(start, 24*time.Second+frame)
	assert.Equal(t, 2, h.loop.Scheduler().Index())
}

func TestLoopFollowsLightCount(t *testing.T) {
	h := newHarness(t, 0, nil)
	require.NoError(t, h.port.WriteLive(settings.FieldLightCount, 40))
	h.loop.Tick(h.clock.Now())
	assert.Equal(t, 40, h.fb.Len())
	last := h.drv.Last()
	require.Len(t, last, 150*3)
	assert.Equal(t, make([]byte, 110*3), last[40*3:], "pixels past the light count stay dark")

	require.NoError(t, h.port.WriteLive(settings.FieldLightCount, 9999))
	h.loop.Tick(h.clock.Now())
	assert.Equal(t, 150, h.fb.Len())
}

func TestLoopPausesWhileConnected(t *testing.T) {
	h := newHarness(t, 0, nil)
	start := h.clock.Now()
	h.runUntil(start, time.Second)
	frames := h.drv.Frames()
	held := h.drv.Last()

	h.link.connected = true
	h.runUntil(start, 10*time.Second)
	assert.Equal(t, frames, h.drv.Frames(), "nothing is pushed while a central is connected")
	assert.Equal(t, held, h.drv.Last())
	assert.Equal(t, 0, h.loop.Scheduler().Index())
	assert.True(t, h.loop.Status().Paused)
	assert.Positive(t, h.link.polls)

	// 1.02s of the interval elapsed before the pause, which began at 1.02s
	// and ended at 10.02s, so the switch is due at 14s.
	h.link.connected = false
	h.runUntil(start, 14*time.Second-frame)
	assert.Equal(t, 0, h.loop.Scheduler().Index())
	h.runUntil(start, 14*time.Second)
	assert.Equal(t, 1, h.loop.Scheduler().Index())
}

func TestLoopPublishesCeiling(t *testing.T) {
	bus := events.New()
	ceilings := make(chan events.CeilingChanged, 4)
	switches := make(chan events.EffectSwitched, 4)
	defer bus.Subscribe(func(e events.CeilingChanged) { ceilings <- e })()
	defer bus.Subscribe(func(e events.EffectSwitched) { switches <- e })()

	h := newHarness(t, 500, bus)
	start := h.clock.Now()
	h.loop.Tick(start)
	assert.True(t, h.loop.Status().Limited)
	assert.LessOrEqual(t, h.loop.Status().PowerMW, 500.0)

	select {
	case e := <-ceilings:
		assert.True(t, e.Active)
	case <-time.After(time.Second):
		t.Fatal("no ceiling event")
	}

	h.runUntil(start, 5*time.Second)
	select {
	case e := <-switches:
		assert.Equal(t, 1, e.To)
		assert.Equal(t, "train", e.Name)
	case <-time.After(time.Second):
		t.Fatal("no switch event")
	}
}

func TestLoopRun(t *testing.T) {
	h := newHarness(t, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.loop.Run(ctx) }()

	h.clock.BlockUntil(1)
	h.clock.Advance(frame)
	assert.Eventually(t, func() bool { return h.drv.Frames() >= 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
