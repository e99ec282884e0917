package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"

	"github.com/coreman2200/xmaslights/internal/layout"
)

// DefaultMaxLights is the hardware maximum when none is configured.
const DefaultMaxLights = 150

// Driver abstracts the LED transport (SPI, PWM, console).
type Driver interface {
	// Write pushes one frame, 3 bytes (R,G,B) per physical pixel.
	Write(rgb []byte) error
}

// Options configure a FrameBuffer.
type Options struct {
	MaxLights  int
	Brightness uint8
	BudgetMW   float64 // 0 disables the power ceiling
	Model      PowerModel
	Strip      layout.Strip
	Driver     Driver
	Indicator  gpio.PinOut // driven high while the ceiling is enforced
	Clock      clockwork.Clock
}

// FrameStats describes the last frame pushed by Show.
type FrameStats struct {
	At         time.Time
	UnscaledMW float64 // at full brightness
	PowerMW    float64 // at the brightness actually sent
	Brightness uint8   // brightness actually sent
	Limited    bool    // power ceiling engaged
}

// FrameBuffer is the fixed-capacity pixel buffer plus brightness and power
// bookkeeping. It is owned by the render loop; effects borrow it per step.
type FrameBuffer struct {
	pix        []Color
	n          int
	brightness uint8
	base       uint8
	budgetMW   float64
	model      PowerModel
	strip      layout.Strip
	drv        Driver
	ind        gpio.PinOut
	indicated  bool
	indKnown   bool
	clock      clockwork.Clock
	out        []byte

	lastShow time.Time
	fps      float64
	last     FrameStats
}

func NewFrameBuffer(o Options) (*FrameBuffer, error) {
	if o.MaxLights <= 0 {
		return nil, fmt.Errorf("invalid max lights: %d", o.MaxLights)
	}
	if o.Driver == nil {
		return nil, errors.New("frame buffer needs a driver")
	}
	if o.Model == (PowerModel{}) {
		o.Model = DefaultPowerModel
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Strip.Count == 0 {
		o.Strip.Count = o.MaxLights
	}
	return &FrameBuffer{
		pix:        make([]Color, o.MaxLights),
		n:          o.MaxLights,
		brightness: o.Brightness,
		base:       o.Brightness,
		budgetMW:   o.BudgetMW,
		model:      o.Model,
		strip:      o.Strip,
		drv:        o.Driver,
		ind:        o.Indicator,
		clock:      o.Clock,
		out:        make([]byte, o.Strip.Count*3),
	}, nil
}

// Len is the configured light count.
func (fb *FrameBuffer) Len() int { return fb.n }

// Cap is the hardware maximum.
func (fb *FrameBuffer) Cap() int { return len(fb.pix) }

// Resize sets the light count, clamped to [1, Cap]. Pixels past the new
// length are blanked so they stay dark if the strip grows again.
func (fb *FrameBuffer) Resize(n int) {
	if n < 1 {
		n = 1
	}
	if n > len(fb.pix) {
		n = len(fb.pix)
	}
	for i := n; i < fb.n; i++ {
		fb.pix[i] = Color{}
	}
	fb.n = n
}

func (fb *FrameBuffer) At(i int) Color {
	fb.check(i)
	return fb.pix[i]
}

func (fb *FrameBuffer) Set(i int, c Color) {
	fb.check(i)
	fb.pix[i] = c
}

// Fill sets every pixel up to Len.
func (fb *FrameBuffer) Fill(c Color) {
	for i := 0; i < fb.n; i++ {
		fb.pix[i] = c
	}
}

// Fade dims pixel i towards black by amount/256.
func (fb *FrameBuffer) Fade(i int, amount uint8) {
	fb.check(i)
	keep := 255 - amount
	c := fb.pix[i]
	fb.pix[i] = Color{R: scale8(c.R, keep), G: scale8(c.G, keep), B: scale8(c.B, keep)}
}

// Pixels returns a copy of the visible pixels.
func (fb *FrameBuffer) Pixels() []Color {
	return append([]Color(nil), fb.pix[:fb.n]...)
}

// Clear blanks every pixel. Unless preserveBrightness is set the brightness
// returns to the value the buffer was created with.
func (fb *FrameBuffer) Clear(preserveBrightness bool) {
	for i := range fb.pix {
		fb.pix[i] = Color{}
	}
	if !preserveBrightness {
		fb.brightness = fb.base
	}
}

func (fb *FrameBuffer) Brightness() uint8      { return fb.brightness }
func (fb *FrameBuffer) SetBrightness(b uint8)  { fb.brightness = b }
func (fb *FrameBuffer) BudgetMW() float64      { return fb.budgetMW }
func (fb *FrameBuffer) SetBudgetMW(mw float64) { fb.budgetMW = mw }

// UnscaledPowerMilliwatts is the draw of the current pixels at full brightness.
func (fb *FrameBuffer) UnscaledPowerMilliwatts() float64 {
	return fb.model.Unscaled(fb.pix[:fb.n])
}

// EstimatePowerMilliwatts is the draw of the current pixels at the current
// brightness, before any ceiling is applied.
func (fb *FrameBuffer) EstimatePowerMilliwatts() float64 {
	return fb.model.Scaled(fb.pix[:fb.n], fb.brightness)
}

// FPS is the smoothed rate at which Show is being called.
func (fb *FrameBuffer) FPS() float64 { return fb.fps }

// Last returns the stats of the most recent Show.
func (fb *FrameBuffer) Last() FrameStats { return fb.last }

// Show pushes the frame to the driver, enforcing the power ceiling first.
// It blocks until the driver has accepted the whole frame.
func (fb *FrameBuffer) Show() error {
	unscaled := fb.UnscaledPowerMilliwatts()
	b, limited := LimitBrightness(unscaled, fb.brightness, fb.budgetMW)

	var indErr error
	if fb.ind != nil && (!fb.indKnown || fb.indicated != limited) {
		indErr = fb.ind.Out(gpio.Level(limited))
		fb.indicated, fb.indKnown = limited, indErr == nil
	}

	for i := range fb.out {
		fb.out[i] = 0
	}
	for i := 0; i < fb.n && i < fb.strip.Count; i++ {
		p := fb.strip.Index(i) * 3
		c := fb.pix[i]
		fb.out[p+0] = scale8(c.R, b)
		fb.out[p+1] = scale8(c.G, b)
		fb.out[p+2] = scale8(c.B, b)
	}
	err := fb.drv.Write(fb.out)

	now := fb.clock.Now()
	if !fb.lastShow.IsZero() {
		if dt := now.Sub(fb.lastShow).Seconds(); dt > 0 {
			if fb.fps == 0 {
				fb.fps = 1 / dt
			} else {
				fb.fps = 0.9*fb.fps + 0.1*(1/dt)
			}
		}
	}
	fb.lastShow = now
	fb.last = FrameStats{
		At:         now,
		UnscaledMW: unscaled,
		PowerMW:    unscaled * float64(b) / 255,
		Brightness: b,
		Limited:    limited,
	}

	if err != nil {
		return fmt.Errorf("push frame: %w", err)
	}
	if indErr != nil {
		return fmt.Errorf("power indicator: %w", indErr)
	}
	return nil
}

func (fb *FrameBuffer) check(i int) {
	if i < 0 || i >= fb.n {
		panic(fmt.Sprintf("render: pixel %d out of range [0,%d)", i, fb.n))
	}
}
