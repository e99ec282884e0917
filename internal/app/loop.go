package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/coreman2200/xmaslights/internal/events"
	"github.com/coreman2200/xmaslights/internal/render"
	"github.com/coreman2200/xmaslights/internal/sequence"
	"github.com/coreman2200/xmaslights/internal/settings"
)

// ConfigSource is the read side of the configuration port.
type ConfigSource interface {
	ReadLive() settings.Configuration
}

// Link is the remote channel as the loop sees it.
type Link interface {
	Poll(timeout time.Duration) int
	Connected() bool
}

// LoopOptions wire a Loop.
type LoopOptions struct {
	FB      *render.FrameBuffer
	Catalog *render.Catalog
	Config  ConfigSource
	Link    Link        // optional
	Bus     *events.Bus // optional
	Clock   clockwork.Clock
	Log     zerolog.Logger

	FrameInterval       time.Duration
	PollTimeout         time.Duration
	PauseWhileConnected bool
	StatsEvery          time.Duration
	Hue                 uint8
}

// Status is a snapshot of the loop for observers on other goroutines.
type Status struct {
	FPS        float64
	PowerMW    float64
	RequiredMW float64
	Brightness uint8
	Index      int
	Name       string
	Limited    bool
	Running    bool
	Paused     bool
	Connected  bool
	LightCount int
	At         time.Time
}

// Loop is the render loop. Tick runs one iteration; everything it touches
// (frame buffer, effects, scheduler) belongs to the goroutine calling Tick.
type Loop struct {
	fb    *render.FrameBuffer
	cat   *render.Catalog
	cfg   ConfigSource
	link  Link
	bus   *events.Bus
	clock clockwork.Clock
	log   zerolog.Logger
	sched *sequence.Scheduler

	interval   time.Duration
	poll       time.Duration
	pause      bool
	statsEvery time.Duration
	hue        uint8

	limited    bool
	lastStats  time.Time
	lastErrLog time.Time
	dropped    int

	mu     sync.RWMutex
	status Status
}

func NewLoop(o LoopOptions) (*Loop, error) {
	if o.FB == nil || o.Catalog == nil || o.Config == nil {
		return nil, fmt.Errorf("loop needs a frame buffer, a catalog and a config source")
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = 20 * time.Millisecond
	}
	if o.StatsEvery <= 0 {
		o.StatsEvery = time.Second
	}
	l := &Loop{
		fb:         o.FB,
		cat:        o.Catalog,
		cfg:        o.Config,
		link:       o.Link,
		bus:        o.Bus,
		clock:      o.Clock,
		log:        o.Log.With().Str("component", "loop").Logger(),
		interval:   o.FrameInterval,
		poll:       o.PollTimeout,
		pause:      o.PauseWhileConnected,
		statsEvery: o.StatsEvery,
		hue:        o.Hue,
	}
	sched, err := sequence.NewScheduler(o.Catalog.Len(), sequence.Hooks{
		Cleared:  func() { l.fb.Clear(true) },
		Switched: l.switched,
	})
	if err != nil {
		return nil, err
	}
	l.sched = sched
	sched.Start(l.clock.Now())
	return l, nil
}

// Scheduler exposes the effect rotation state.
func (l *Loop) Scheduler() *sequence.Scheduler { return l.sched }

// Status returns the latest snapshot. Safe from any goroutine.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Names lists the catalog in index order.
func (l *Loop) Names() []string { return l.cat.Names() }

// Run drives Tick at the frame interval until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	t := l.clock.NewTicker(l.interval)
	defer t.Stop()
	l.log.Info().Dur("interval", l.interval).Strs("effects", l.cat.Names()).Msg("render loop starting")
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.Chan():
			l.Tick(now)
		}
	}
}

// Tick runs one loop iteration at now.
func (l *Loop) Tick(now time.Time) {
	if l.link != nil {
		l.link.Poll(l.poll)
	}
	cfg := l.cfg.ReadLive().Normalized(l.fb.Cap())
	l.fb.Resize(int(cfg.LightCount))

	connected := l.link != nil && l.link.Connected()
	paused := connected && l.pause
	switch {
	case paused:
		// Last frame stays on the strip; the switch timer stops.
		l.sched.Suspend(now)
	case cfg.Run:
		l.sched.Resume(now)
		eff := l.cat.At(l.sched.Index())
		eff.Step(l.fb, now, render.Params{
			StripeWidth: int(cfg.StripeWidth),
			CarLength:   int(cfg.CarLength),
			Hue:         l.hue,
		})
		l.show(now)
		l.sched.Tick(now, cfg.Interval())
	default:
		l.sched.Suspend(now)
		l.fb.Clear(true)
		l.show(now)
	}
	l.record(now, cfg, connected, paused)
}

func (l *Loop) show(now time.Time) {
	if err := l.fb.Show(); err != nil {
		l.dropped++
		if now.Sub(l.lastErrLog) >= time.Second {
			l.log.Warn().Err(err).Int("dropped", l.dropped).Msg("frame push failed")
			l.lastErrLog = now
			l.dropped = 0
		}
	}
	st := l.fb.Last()
	if st.Limited != l.limited {
		l.limited = st.Limited
		l.log.Info().Bool("active", st.Limited).Uint8("brightness", st.Brightness).
			Float64("required_mw", st.UnscaledMW).Msg("power ceiling")
		if l.bus != nil {
			l.bus.Publish(events.CeilingChanged{Active: st.Limited, Brightness: st.Brightness, At: now})
		}
	}
}

func (l *Loop) switched(from, to int) {
	name := l.cat.At(to).Name()
	l.log.Info().Int("from", from).Int("to", to).Str("effect", name).Msg("effect switched")
	if l.bus != nil {
		l.bus.Publish(events.EffectSwitched{From: from, To: to, Name: name, At: l.clock.Now()})
	}
}

func (l *Loop) record(now time.Time, cfg settings.Configuration, connected, paused bool) {
	st := l.fb.Last()
	idx := l.sched.Index()
	s := Status{
		FPS:        l.fb.FPS(),
		PowerMW:    st.PowerMW,
		RequiredMW: st.UnscaledMW,
		Brightness: st.Brightness,
		Index:      idx,
		Name:       l.cat.At(idx).Name(),
		Limited:    st.Limited,
		Running:    cfg.Run,
		Paused:     paused,
		Connected:  connected,
		LightCount: int(cfg.LightCount),
		At:         now,
	}
	l.mu.Lock()
	l.status = s
	l.mu.Unlock()

	if l.bus != nil && now.Sub(l.lastStats) >= l.statsEvery {
		l.lastStats = now
		l.bus.Publish(events.FrameStats{
			FPS:        s.FPS,
			PowerMW:    s.PowerMW,
			RequiredMW: s.RequiredMW,
			Index:      s.Index,
			Name:       s.Name,
			Limited:    s.Limited,
			Running:    s.Running,
			Connected:  s.Connected,
			At:         now,
		})
	}
}
