package layout

// Strip describes how logical pixel indexes land on the physical strip.
type Strip struct {
	Count   int  // physical pixels on the wire
	Reverse bool // strip is fed from the far end
	Offset  int  // logical pixel 0 sits this many pixels down the wire
}

// Index maps a logical index (0..Count-1) to its physical position.
func (s Strip) Index(i int) int {
	if s.Count <= 0 {
		return i
	}
	p := ((i+s.Offset)%s.Count + s.Count) % s.Count
	if s.Reverse {
		p = s.Count - 1 - p
	}
	return p
}
