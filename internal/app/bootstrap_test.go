package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/coreman2200/xmaslights/internal/config"
	"github.com/coreman2200/xmaslights/internal/diagnostics"
	"github.com/coreman2200/xmaslights/internal/display"
	"github.com/coreman2200/xmaslights/internal/led"
	"github.com/coreman2200/xmaslights/internal/settings"
)

type recordingScreen struct {
	mu     sync.Mutex
	shown  []display.Status
	closed bool
}

func (r *recordingScreen) Show(s display.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, s)
	return nil
}

func (r *recordingScreen) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingScreen) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Driver = "fake"
	cfg.PollTimeout = 0
	return cfg
}

func newTestCore(t *testing.T, store settings.Store) (*Core, *led.Fake, *recordingScreen, clockwork.FakeClock) {
	t.Helper()
	drv := &led.Fake{}
	scr := &recordingScreen{}
	clock := clockwork.NewFakeClock()
	c, err := InitCore(testConfig(), Overrides{
		Driver: drv,
		Store:  store,
		Screen: scr,
		Clock:  clock,
		Seed:   1,
	}, zerolog.Nop())
	require.NoError(t, err)
	return c, drv, scr, clock
}

func TestInitCoreRendersFrames(t *testing.T) {
	c, drv, _, clock := newTestCore(t, &settings.MemStore{})
	for i := 0; i < 5; i++ {
		clock.Advance(frame)
		c.Loop.Tick(clock.Now())
	}
	assert.Equal(t, 5, drv.Frames())
	assert.Len(t, drv.Last(), 150*3)
	assert.Equal(t, "candycane", c.Loop.Status().Name)
	assert.Equal(t, c.Catalog.Names(), c.Loop.Names())
}

func TestInitCoreUsesPersistedSettings(t *testing.T) {
	store := &settings.MemStore{}
	saved := settings.Defaults()
	saved.Version = settings.SchemaVersion
	saved.LightCount = 40
	require.NoError(t, store.Save(saved))

	c, _, _, clock := newTestCore(t, store)
	assert.Equal(t, int32(40), c.Port.ReadLive().LightCount)
	c.Loop.Tick(clock.Now())
	assert.Equal(t, 40, c.FB.Len())
}

func TestInitCoreWritesThroughOnDisconnect(t *testing.T) {
	store := &settings.MemStore{}
	c, _, _, _ := newTestCore(t, store)

	// Nothing changed: nothing written.
	c.Port.HandleDisconnect()
	assert.Zero(t, store.Saves)

	require.NoError(t, c.Port.WriteLive(settings.FieldRun, 0))
	c.Port.HandleDisconnect()
	assert.Equal(t, 1, store.Saves)
	rec, err := store.Load()
	require.NoError(t, err)
	assert.False(t, rec.Run)

	c.Port.HandleDisconnect()
	assert.Equal(t, 1, store.Saves)
}

func TestInitCoreFailedSaveRetries(t *testing.T) {
	fail := true
	store := &settings.MemStore{SaveFn: func(settings.Configuration) error {
		if fail {
			return errors.New("flash busy")
		}
		return nil
	}}
	c, _, _, _ := newTestCore(t, store)
	require.NoError(t, c.Port.WriteLive(settings.FieldCarLength, 9))
	c.Port.HandleDisconnect()
	assert.Zero(t, store.Saves)

	fail = false
	c.Port.HandleDisconnect()
	assert.Equal(t, 1, store.Saves)
}

func TestInitCoreOutputFailureIsDiagnostic(t *testing.T) {
	cfg := testConfig()
	cfg.Driver = "pwm"
	cfg.PWM.GPIO = 99
	_, err := InitCore(cfg, Overrides{Store: &settings.MemStore{}, Screen: display.Nop{}}, zerolog.Nop())
	require.Error(t, err)
	var d *diagnostics.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, "INIT.OUTPUT", d.Code)
}

func TestInitCoreFailureLowersIndicator(t *testing.T) {
	cfg := testConfig()
	cfg.Display.Enabled = true
	cfg.Display.Bus = "no-such-bus"
	pin := &gpiotest.Pin{N: "GPIO17", L: gpio.High}
	_, err := InitCore(cfg, Overrides{Driver: &led.Fake{}, Store: &settings.MemStore{}, Indicator: pin}, zerolog.Nop())
	require.Error(t, err)
	assert.Equal(t, gpio.Low, pin.Read())
}

func TestCloseLowersIndicator(t *testing.T) {
	cfg := testConfig()
	cfg.Power.BudgetMW = 100
	pin := &gpiotest.Pin{N: "GPIO17"}
	clock := clockwork.NewFakeClock()
	c, err := InitCore(cfg, Overrides{
		Driver:    &led.Fake{},
		Store:     &settings.MemStore{},
		Screen:    display.Nop{},
		Indicator: pin,
		Clock:     clock,
		Seed:      1,
	}, zerolog.Nop())
	require.NoError(t, err)

	clock.Advance(frame)
	c.Loop.Tick(clock.Now())
	require.True(t, c.Loop.Status().Limited)
	require.Equal(t, gpio.High, pin.Read())

	require.NoError(t, c.Close())
	assert.Equal(t, gpio.Low, pin.Read())
}

func TestInitCoreRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLights = 0
	_, err := InitCore(cfg, Overrides{Driver: &led.Fake{}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpenDriverRejectsBadOrder(t *testing.T) {
	cfg := testConfig()
	cfg.ColorOrder = "RGX"
	_, err := OpenDriver(cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig()
	d, err := OpenDriver(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &led.Fake{}, d)
}

func TestCoreRunDisplayAndClose(t *testing.T) {
	c, drv, scr, clock := newTestCore(t, &settings.MemStore{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// The loop ticker and the display ticker.
	clock.BlockUntil(2)
	clock.Advance(time.Second)
	assert.Eventually(t, func() bool { return scr.count() > 0 && drv.Frames() > 0 },
		time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, c.Close())
	assert.True(t, drv.Closed())
	assert.True(t, scr.closed)
	for _, b := range drv.Last() {
		require.Zero(t, b)
	}
	assert.NoError(t, c.Close())
}

func TestDisplayStatus(t *testing.T) {
	s := DisplayStatus(Status{FPS: 50, RequiredMW: 1200, Name: "comet", Connected: true, Limited: true})
	assert.Equal(t, display.Status{FPS: 50, RequiredMW: 1200, Effect: "comet", Connected: true, Limited: true}, s)
}
