package led

import (
	"sync"

	"github.com/rs/zerolog"
)

// Fake records frames and optionally logs a compact summary of every
// Every-th frame (first pixel and channel averages). Useful for headless runs.
type Fake struct {
	Log   *zerolog.Logger
	Every int

	mu     sync.Mutex
	count  int
	last   []byte
	closed bool
}

func (f *Fake) Write(rgb []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.last = append(f.last[:0], rgb...)
	if f.Log != nil && f.Every > 0 && f.count%f.Every == 0 {
		avg := Average(rgb)
		ev := f.Log.Info().Int("frame", f.count).Floats64("avg", avg[:])
		if len(rgb) >= 3 {
			ev = ev.Bytes("first", rgb[:3])
		}
		ev.Msg("frame")
	}
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Frames is the number of frames written.
func (f *Fake) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Last returns a copy of the most recent frame.
func (f *Fake) Last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.last...)
}

func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Average returns the mean of each channel across the frame.
func Average(rgb []byte) [3]float64 {
	var sum [3]float64
	n := len(rgb) / 3
	if n == 0 {
		return sum
	}
	for i := 0; i < n; i++ {
		sum[0] += float64(rgb[i*3])
		sum[1] += float64(rgb[i*3+1])
		sum[2] += float64(rgb[i*3+2])
	}
	for k := range sum {
		sum[k] /= float64(n)
	}
	return sum
}
