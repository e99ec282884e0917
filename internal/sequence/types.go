package sequence

import "time"

// MinInterval is the shortest time an effect stays on the strip.
const MinInterval = time.Second

// State enumerates scheduler states.
type State string

const (
	Idle      State = "idle"
	Running   State = "running"
	Suspended State = "suspended"
)

// Hooks are dependency-injected callbacks into the render loop.
type Hooks struct {
	// Cleared blanks the frame buffer (brightness kept) before the next
	// effect draws its first frame.
	Cleared func()
	// Switched reports a transition between catalog indices.
	Switched func(from, to int)
}

// Scheduler rotates through a catalog of n effects on a fixed interval.
// It only tracks which effect is active; it never touches effect state.
type Scheduler struct {
	State State

	n          int
	idx        int
	lastSwitch time.Time
	pausedAt   time.Time

	hooks Hooks
}
