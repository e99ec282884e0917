package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeEffectSwitched uint32 = iota + 1
	TypeCeilingChanged
	TypeLinkChanged
	TypeFrameStats
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// EffectSwitched is published when the scheduler moves to another effect.
type EffectSwitched struct {
	From, To int
	Name     string
	At       time.Time
}

func (e EffectSwitched) Type() uint32 { return TypeEffectSwitched }

// CeilingChanged is published when the power ceiling engages or releases.
type CeilingChanged struct {
	Active     bool
	Brightness uint8
	At         time.Time
}

func (e CeilingChanged) Type() uint32 { return TypeCeilingChanged }

// LinkChanged is published when a central connects or disconnects.
type LinkChanged struct {
	Connected bool
	At        time.Time
}

func (e LinkChanged) Type() uint32 { return TypeLinkChanged }

// FrameStats is a periodic snapshot of the render loop.
type FrameStats struct {
	FPS        float64
	PowerMW    float64 // after the ceiling
	RequiredMW float64 // before the ceiling
	Index      int
	Name       string
	Limited    bool
	Running    bool
	Connected  bool
	At         time.Time
}

func (e FrameStats) Type() uint32 { return TypeFrameStats }
