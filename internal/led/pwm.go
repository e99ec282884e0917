//go:build ws281x

package led

import (
	"fmt"
	"sync"

	ws2811 "github.com/rpi-ws281x/rpi-ws281x-go"
)

// PWMSupported reports whether this build can drive strips via PWM/DMA.
const PWMSupported = true

// PWM drives a strip through the rpi_ws281x library.
type PWM struct {
	mu    sync.Mutex
	dev   *ws2811.WS2811
	count int
}

// NewPWM opens the strip on the given GPIO. Brightness is left at full; the
// frame buffer scales pixels itself.
func NewPWM(gpioPin int, count int, order ColorOrder) (*PWM, error) {
	opt := ws2811.DefaultOptions
	opt.Channels[0].GpioPin = gpioPin
	opt.Channels[0].LedCount = count
	opt.Channels[0].Brightness = 255
	switch order {
	case RGB:
		opt.Channels[0].StripeType = ws2811.WS2811StripRGB
	case BRG:
		opt.Channels[0].StripeType = ws2811.WS2811StripBRG
	default:
		opt.Channels[0].StripeType = ws2811.WS2811StripGRB
	}
	dev, err := ws2811.MakeWS2811(&opt)
	if err != nil {
		return nil, fmt.Errorf("ws2811: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("ws2811 init: %w", err)
	}
	return &PWM{dev: dev, count: count}, nil
}

func (p *PWM) Write(rgb []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return fmt.Errorf("pwm not initialized")
	}
	leds := p.dev.Leds(0)
	for i := 0; i < p.count && i < len(leds) && i*3+2 < len(rgb); i++ {
		leds[i] = uint32(rgb[i*3])<<16 | uint32(rgb[i*3+1])<<8 | uint32(rgb[i*3+2])
	}
	if err := p.dev.Render(); err != nil {
		return fmt.Errorf("ws2811 render: %w", err)
	}
	return nil
}

func (p *PWM) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev != nil {
		p.dev.Fini()
		p.dev = nil
	}
	return nil
}
