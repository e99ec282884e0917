package led

import (
	"errors"
	"fmt"
	"strings"
)

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// ColorOrder is the channel order the strip expects on the wire.
type ColorOrder [3]byte

var (
	RGB = ColorOrder{'R', 'G', 'B'}
	GRB = ColorOrder{'G', 'R', 'B'}
	BRG = ColorOrder{'B', 'R', 'G'}
)

// ParseColorOrder accepts any permutation of "RGB".
func ParseColorOrder(s string) (ColorOrder, error) {
	s = strings.ToUpper(s)
	if len(s) != 3 || !strings.ContainsRune(s, 'R') || !strings.ContainsRune(s, 'G') || !strings.ContainsRune(s, 'B') {
		return ColorOrder{}, fmt.Errorf("invalid color order %q", s)
	}
	return ColorOrder{s[0], s[1], s[2]}, nil
}

func (o ColorOrder) String() string { return string(o[:]) }

// Reorder copies rgb into dst with channels in order o. dst and rgb may alias.
func (o ColorOrder) Reorder(dst, rgb []byte) {
	for i := 0; i+2 < len(rgb); i += 3 {
		r, g, b := rgb[i], rgb[i+1], rgb[i+2]
		for k := 0; k < 3; k++ {
			switch o[k] {
			case 'R':
				dst[i+k] = r
			case 'G':
				dst[i+k] = g
			default:
				dst[i+k] = b
			}
		}
	}
}

// Ordered wraps a driver so frames are reordered before they reach it.
type Ordered struct {
	Driver
	Order ColorOrder
	buf   []byte
}

func (o *Ordered) Write(rgb []byte) error {
	if o.Order == RGB || o.Order == (ColorOrder{}) {
		return o.Driver.Write(rgb)
	}
	if cap(o.buf) < len(rgb) {
		o.buf = make([]byte, len(rgb))
	}
	o.buf = o.buf[:len(rgb)]
	o.Order.Reorder(o.buf, rgb)
	return o.Driver.Write(o.buf)
}

// Tee fans every frame out to several drivers. All drivers receive the
// frame even if an earlier one fails.
type Tee []Driver

func (t Tee) Write(rgb []byte) error {
	var errs []error
	for _, d := range t {
		if err := d.Write(rgb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Close() error {
	var errs []error
	for _, d := range t {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NRZInput returns the order frames must be in before they reach an nrzled
// device so that the wire carries order o. nrzled always emits GRB from
// what it is given, i.e. it swaps the first two bytes of every pixel.
func NRZInput(o ColorOrder) ColorOrder {
	return ColorOrder{o[1], o[0], o[2]}
}
