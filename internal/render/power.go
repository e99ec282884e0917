package render

import "math"

// PowerModel gives the draw of one LED channel at full scale, in milliwatts,
// plus the constant draw of a dark LED.
type PowerModel struct {
	RedMW   float64
	GreenMW float64
	BlueMW  float64
	IdleMW  float64
}

// WS2812B at 5V: 16mA red, 11mA green, 15mA blue, 1mA quiescent.
var DefaultPowerModel = PowerModel{RedMW: 80, GreenMW: 55, BlueMW: 75, IdleMW: 5}

// Unscaled returns the estimated draw of buf at full brightness.
func (m PowerModel) Unscaled(buf []Color) float64 {
	var r, g, b float64
	for _, c := range buf {
		r += float64(c.R)
		g += float64(c.G)
		b += float64(c.B)
	}
	return (r*m.RedMW+g*m.GreenMW+b*m.BlueMW)/255 + float64(len(buf))*m.IdleMW
}

// Scaled returns the draw of buf at brightness (0..255).
func (m PowerModel) Scaled(buf []Color, brightness uint8) float64 {
	return m.Unscaled(buf) * float64(brightness) / 255
}

// LimitBrightness returns the largest brightness <= want whose estimated draw
// stays under budgetMW, and whether any limiting happened. A budget <= 0
// disables the ceiling.
func LimitBrightness(unscaledMW float64, want uint8, budgetMW float64) (uint8, bool) {
	if budgetMW <= 0 || unscaledMW <= 0 {
		return want, false
	}
	requested := unscaledMW * float64(want) / 255
	if requested <= budgetMW {
		return want, false
	}
	b := math.Floor(float64(want) * budgetMW / requested)
	if b < 0 {
		b = 0
	}
	return uint8(b), true
}

// scale8 scales a channel by brightness, FastLED style:
// 255 leaves the value untouched, 0 turns it off.
func scale8(v, brightness uint8) uint8 {
	return uint8((uint16(v) * (uint16(brightness) + 1)) >> 8)
}
