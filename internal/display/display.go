// Package display renders a short status summary on a small monochrome OLED.
package display

import (
	"errors"
	"fmt"
	"image"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	conndisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// Status is what the screen shows.
type Status struct {
	FPS        float64
	RequiredMW float64 // unscaled estimate, before the ceiling
	Effect     string
	Connected  bool
	Limited    bool
}

// Lines formats s as the text rows drawn on screen.
func Lines(s Status) []string {
	link := "idle"
	if s.Connected {
		link = "connected"
	}
	pwr := fmt.Sprintf("Required Pwr: %.0f mW", s.RequiredMW)
	if s.Limited {
		pwr += " *"
	}
	return []string{
		fmt.Sprintf("FPS: %.1f", s.FPS),
		pwr,
		"Effect: " + s.Effect,
		"Link: " + link,
	}
}

// Screen shows status updates.
type Screen interface {
	Show(Status) error
	Close() error
}

// Nop is used when no display is configured.
type Nop struct{}

func (Nop) Show(Status) error { return nil }
func (Nop) Close() error      { return nil }

// OLED draws status text on a 1-bit display.
type OLED struct {
	dev conndisplay.Drawer
	img *image1bit.VerticalLSB
	bus io.Closer // nil unless the OLED opened the bus itself
}

func NewOLED(dev conndisplay.Drawer) *OLED {
	return &OLED{dev: dev, img: image1bit.NewVerticalLSB(dev.Bounds())}
}

// OpenSSD1306 opens a 128x64 SSD1306 on the named I²C bus ("" picks the
// first one).
func OpenSSD1306(bus string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", bus, err)
	}
	dev, err := ssd1306.NewI2C(b, &ssd1306.DefaultOpts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("ssd1306: %w", err)
	}
	o := NewOLED(dev)
	o.bus = b
	return o, nil
}

func (o *OLED) Show(s Status) error {
	for i := range o.img.Pix {
		o.img.Pix[i] = 0
	}
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  o.img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: face,
	}
	lh := face.Metrics().Height
	for i, line := range Lines(s) {
		d.Dot = fixed.Point26_6{X: fixed.I(0), Y: lh * fixed.Int26_6(i+1)}
		d.DrawString(line)
	}
	return o.dev.Draw(o.dev.Bounds(), o.img, image.Point{})
}

// Close halts the panel and releases the bus it was opened on.
func (o *OLED) Close() error {
	err := o.dev.Halt()
	if o.bus != nil {
		err = errors.Join(err, o.bus.Close())
		o.bus = nil
	}
	return err
}
