package sequence

import (
	"errors"
	"time"
)

// NewScheduler constructs an Idle scheduler over n effects, starting at index 0.
func NewScheduler(n int, h Hooks) (*Scheduler, error) {
	if n <= 0 {
		return nil, errors.New("scheduler needs at least one effect")
	}
	return &Scheduler{State: Idle, n: n, hooks: h}, nil
}

// Start moves to Running and starts the switch timer at now.
func (s *Scheduler) Start(now time.Time) {
	if s.State == Running {
		return
	}
	s.State = Running
	s.lastSwitch = now
}

// Suspend freezes the switch timer.
func (s *Scheduler) Suspend(now time.Time) {
	if s.State != Running {
		return
	}
	s.State = Suspended
	s.pausedAt = now
}

// Resume continues the interval that was running when Suspend was called.
func (s *Scheduler) Resume(now time.Time) {
	if s.State != Suspended {
		return
	}
	s.lastSwitch = s.lastSwitch.Add(now.Sub(s.pausedAt))
	s.State = Running
}

// Index is the active catalog position.
func (s *Scheduler) Index() int { return s.idx }

// Len is the catalog size.
func (s *Scheduler) Len() int { return s.n }

// Elapsed is how long the active effect has been running, excluding time
// spent suspended.
func (s *Scheduler) Elapsed(now time.Time) time.Duration {
	switch s.State {
	case Running:
		return now.Sub(s.lastSwitch)
	case Suspended:
		return s.pausedAt.Sub(s.lastSwitch)
	}
	return 0
}

// Tick advances to the next effect once interval has elapsed since the last
// switch. interval is read on every call so a live change takes effect at
// the next check; values below MinInterval are raised to it.
func (s *Scheduler) Tick(now time.Time, interval time.Duration) bool {
	if s.State != Running {
		return false
	}
	if interval < MinInterval {
		interval = MinInterval
	}
	if now.Sub(s.lastSwitch) < interval {
		return false
	}
	from := s.idx
	s.idx = (s.idx + 1) % s.n
	s.lastSwitch = now
	if s.hooks.Cleared != nil {
		s.hooks.Cleared()
	}
	if s.hooks.Switched != nil {
		s.hooks.Switched(from, s.idx)
	}
	return true
}
