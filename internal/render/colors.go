package render

// Named colors, using the web/X11 values.
var (
	Black     = Color{}
	White     = Color{R: 0xFF, G: 0xFF, B: 0xFF}
	Red       = Color{R: 0xFF}
	Green     = Color{G: 0x80}
	Blue      = Color{B: 0xFF}
	Purple    = Color{R: 0x80, B: 0x80}
	Orange    = Color{R: 0xFF, G: 0xA5}
	DarkRed   = Color{R: 0x8B}
	DarkGreen = Color{G: 0x64}
	DarkBlue  = Color{B: 0x8B}
)

// Hue returns the fully saturated, full value color at hue h (0..255, 0 is red).
func Hue(h uint8) Color {
	r, g, b := hsvToRGB(float64(h)/256, 1, 1)
	return Color{R: byte(r * 255), G: byte(g * 255), B: byte(b * 255)}
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
