package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/xmaslights/internal/config"
	"github.com/coreman2200/xmaslights/internal/diagnostics"
	"github.com/coreman2200/xmaslights/internal/display"
	"github.com/coreman2200/xmaslights/internal/events"
	"github.com/coreman2200/xmaslights/internal/layout"
	"github.com/coreman2200/xmaslights/internal/led"
	"github.com/coreman2200/xmaslights/internal/link"
	"github.com/coreman2200/xmaslights/internal/metrics"
	"github.com/coreman2200/xmaslights/internal/preview"
	"github.com/coreman2200/xmaslights/internal/render"
	"github.com/coreman2200/xmaslights/internal/render/effects"
	"github.com/coreman2200/xmaslights/internal/settings"
)

// Overrides replace hardware-backed parts. Zero values mean "build from
// the config".
type Overrides struct {
	Driver    led.Driver
	Store     settings.Store
	Screen    display.Screen
	Indicator gpio.PinOut
	Clock     clockwork.Clock
	Seed      uint64
}

// Core is everything the controller runs, wired together.
type Core struct {
	Cfg     *config.Config
	Clock   clockwork.Clock
	Bus     *events.Bus
	FB      *render.FrameBuffer
	Catalog *render.Catalog
	Port    *settings.Port
	Link    *link.Peripheral
	Preview *preview.Hub
	Metrics *metrics.Collector
	Screen  display.Screen
	Loop    *Loop

	log    zerolog.Logger
	driver led.Driver
	ind    gpio.PinOut
	once   sync.Once
}

// OpenDriver builds the output driver named by cfg.Driver.
func OpenDriver(cfg *config.Config, log zerolog.Logger) (led.Driver, error) {
	order, err := led.ParseColorOrder(cfg.ColorOrder)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "spi":
		d, err := led.OpenNRZ(cfg.SPI.Port, cfg.MaxLights, physic.Frequency(cfg.SPI.FreqHz)*physic.Hertz)
		if err != nil {
			return nil, err
		}
		return &led.Ordered{Driver: d, Order: led.NRZInput(order)}, nil
	case "pwm":
		if !led.PWMSupported {
			return nil, errors.New("pwm driver not compiled in; build with -tags ws281x")
		}
		return led.NewPWM(cfg.PWM.GPIO, cfg.MaxLights, order)
	case "sim":
		return led.OpenScreen(cfg.MaxLights), nil
	case "fake":
		l := log.With().Str("component", "fake").Logger()
		return &led.Fake{Log: &l, Every: cfg.FPS}, nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

// InitCore builds the controller from cfg. Any hardware that fails to come
// up is reported as a diagnostics.Diagnostic and nothing is left open.
func InitCore(cfg *config.Config, o Overrides, log zerolog.Logger) (c *Core, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	clock := o.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var cleanup []func() error
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				_ = cleanup[i]()
			}
		}
	}()

	drv := o.Driver
	if drv == nil {
		if drv, err = OpenDriver(cfg, log); err != nil {
			return nil, diagnostics.Output(cfg.Driver, err)
		}
	}
	hub := preview.NewHub(cfg.MaxLights, cfg.Driver, clock, log)
	out := led.Tee{drv, hub}
	cleanup = append(cleanup, out.Close)

	ind := o.Indicator
	if ind == nil && cfg.Power.IndicatorPin != "" {
		if ind, err = led.OpenIndicator(cfg.Power.IndicatorPin); err != nil {
			return nil, diagnostics.Indicator(cfg.Power.IndicatorPin, err)
		}
	}
	if ind != nil {
		cleanup = append(cleanup, func() error { return ind.Out(gpio.Low) })
	}

	scr := o.Screen
	if scr == nil {
		scr = display.Nop{}
		if cfg.Display.Enabled {
			oled, err := display.OpenSSD1306(cfg.Display.Bus)
			if err != nil {
				return nil, diagnostics.Display(cfg.Display.Bus, err)
			}
			scr = oled
		}
	}
	cleanup = append(cleanup, scr.Close)

	fb, err := render.NewFrameBuffer(render.Options{
		MaxLights:  cfg.MaxLights,
		Brightness: cfg.Brightness,
		BudgetMW:   cfg.Power.BudgetMW,
		Strip:      layout.Strip{Count: cfg.MaxLights, Reverse: cfg.Strip.Reverse, Offset: cfg.Strip.Offset},
		Driver:     out,
		Indicator:  ind,
		Clock:      clock,
	})
	if err != nil {
		return nil, err
	}

	seed := o.Seed
	if seed == 0 {
		seed = uint64(clock.Now().UnixNano())
	}
	gens := effects.Default(effects.NewRand(seed), effects.Options{
		CometRandomFade: cfg.CometRandomFade,
	})
	cat, err := render.NewCatalog(gens...)
	if err != nil {
		return nil, err
	}

	store := o.Store
	if store == nil {
		store = settings.FileStore{Path: cfg.SettingsPath}
	}
	initial, _ := settings.LoadPersisted(store, log)
	port := settings.NewPort(store, initial, log)
	port.OnDisconnect(func() {
		if _, err := port.WriteThrough(); err != nil {
			log.Error().Err(err).Str("path", cfg.SettingsPath).Msg("settings not saved; will retry on next disconnect")
		}
	})

	bus := events.New()
	col := metrics.New(bus)
	cleanup = append(cleanup, func() error { col.Close(); return nil })

	per := link.NewPeripheral(cfg.Link.LocalName, port, log)
	per.OnChange = func(connected bool) {
		bus.Publish(events.LinkChanged{Connected: connected, At: clock.Now()})
	}

	loop, err := NewLoop(LoopOptions{
		FB:                  fb,
		Catalog:             cat,
		Config:              port,
		Link:                per,
		Bus:                 bus,
		Clock:               clock,
		Log:                 log,
		FrameInterval:       cfg.FrameInterval(),
		PollTimeout:         cfg.PollTimeout,
		PauseWhileConnected: cfg.Link.PauseWhileConnected,
		Hue:                 cfg.CometHue,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("driver", cfg.Driver).
		Str("order", cfg.ColorOrder).
		Int("max_lights", cfg.MaxLights).
		Float64("budget_mw", cfg.Power.BudgetMW).
		Str("link", per.Name).
		Msg("core initialized")

	return &Core{
		Cfg:     cfg,
		Clock:   clock,
		Bus:     bus,
		FB:      fb,
		Catalog: cat,
		Port:    port,
		Link:    per,
		Preview: hub,
		Metrics: col,
		Screen:  scr,
		Loop:    loop,
		log:     log,
		driver:  out,
		ind:     ind,
	}, nil
}

// Run drives the render loop and the status display until ctx is done.
func (c *Core) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	if _, ok := c.Screen.(display.Nop); !ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RunDisplay(ctx)
		}()
	}
	err := c.Loop.Run(ctx)
	wg.Wait()
	return err
}

// RunDisplay refreshes the status screen from the loop snapshot.
func (c *Core) RunDisplay(ctx context.Context) {
	every := c.Cfg.Display.Interval
	if every <= 0 {
		every = time.Second
	}
	t := c.Clock.NewTicker(every)
	defer t.Stop()
	var failing bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if err := c.Screen.Show(DisplayStatus(c.Loop.Status())); err != nil {
				if !failing {
					c.log.Warn().Err(err).Msg("status display update failed")
				}
				failing = true
				continue
			}
			failing = false
		}
	}
}

// DisplayStatus picks what the screen shows from a loop snapshot.
func DisplayStatus(s Status) display.Status {
	return display.Status{
		FPS:        s.FPS,
		RequiredMW: s.RequiredMW,
		Effect:     s.Name,
		Connected:  s.Connected,
		Limited:    s.Limited,
	}
}

// Close blanks the strip and releases every output. Call it after Run has
// returned.
func (c *Core) Close() error {
	var err error
	c.once.Do(func() {
		c.FB.Clear(false)
		err = c.FB.Show()
		c.Metrics.Close()
		err = errors.Join(err, c.Screen.Close(), c.driver.Close())
		if c.ind != nil {
			err = errors.Join(err, c.ind.Out(gpio.Low))
		}
	})
	return err
}
