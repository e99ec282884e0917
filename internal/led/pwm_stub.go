//go:build !ws281x

package led

import "errors"

const PWMSupported = false

type PWM struct{}

func NewPWM(gpioPin int, count int, order ColorOrder) (*PWM, error) {
	return nil, errors.New("pwm driver not compiled in; build with -tags ws281x")
}
func (p *PWM) Write(rgb []byte) error { return nil }
func (p *PWM) Close() error           { return nil }
