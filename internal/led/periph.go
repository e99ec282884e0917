package led

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"
)

// DefaultNRZFreq is the pixel bit rate of WS2812-class strips.
const DefaultNRZFreq = 800 * physic.KiloHertz

// StreamDriver sends raw RGB frames to an io.Writer such as an nrzled.Dev.
type StreamDriver struct {
	W      io.Writer
	Closer func() error
}

func (s *StreamDriver) Write(rgb []byte) error {
	n, err := s.W.Write(rgb)
	if err != nil {
		return err
	}
	if n != len(rgb) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(rgb))
	}
	return nil
}

func (s *StreamDriver) Close() error {
	if s.Closer == nil {
		return nil
	}
	return s.Closer()
}

// DrawerDriver renders frames as a one-row image on any display.Drawer.
type DrawerDriver struct {
	D   display.Drawer
	img *image.NRGBA
}

func (d *DrawerDriver) Write(rgb []byte) error {
	n := len(rgb) / 3
	if d.img == nil || d.img.Rect.Dx() != n {
		d.img = image.NewNRGBA(image.Rect(0, 0, n, 1))
	}
	for i := 0; i < n; i++ {
		d.img.SetNRGBA(i, 0, color.NRGBA{R: rgb[i*3], G: rgb[i*3+1], B: rgb[i*3+2], A: 255})
	}
	return d.D.Draw(d.D.Bounds(), d.img, image.Point{})
}

func (d *DrawerDriver) Close() error { return d.D.Halt() }

// NewNRZ drives a single-wire strip of n pixels through an SPI port.
func NewNRZ(p spi.PortCloser, n int, freq physic.Frequency) (*StreamDriver, error) {
	if freq == 0 {
		freq = DefaultNRZFreq
	}
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{NumPixels: n, Channels: 3, Freq: freq})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &StreamDriver{
		W: dev,
		Closer: func() error {
			herr := dev.Halt()
			if err := p.Close(); err != nil {
				return err
			}
			return herr
		},
	}, nil
}

// OpenNRZ initializes the host and opens the named SPI port ("" picks the
// first one).
func OpenNRZ(port string, n int, freq physic.Frequency) (*StreamDriver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", port, err)
	}
	return NewNRZ(p, n, freq)
}

// OpenScreen previews the strip as a row of colored cells on the terminal.
func OpenScreen(n int) *DrawerDriver {
	return &DrawerDriver{D: screen.New(n)}
}
