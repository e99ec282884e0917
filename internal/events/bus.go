// Package events is the in-process broadcast between the render loop and
// its observers (metrics, status page, display).
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Delivery is asynchronous; handlers run on the dispatcher's goroutines.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish publishes an event to all subscribers.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case EffectSwitched:
		event.Publish(b.dispatcher, e)
	case CeilingChanged:
		event.Publish(b.dispatcher, e)
	case LinkChanged:
		event.Publish(b.dispatcher, e)
	case FrameStats:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns an
// unsubscribe function. Unknown handler types get a no-op.
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(EffectSwitched):
		return event.Subscribe(b.dispatcher, h)
	case func(CeilingChanged):
		return event.Subscribe(b.dispatcher, h)
	case func(LinkChanged):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameStats):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
