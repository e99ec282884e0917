package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	got := make(chan EffectSwitched, 1)
	unsub := bus.Subscribe(func(e EffectSwitched) { got <- e })
	defer unsub()

	bus.Publish(EffectSwitched{From: 0, To: 1, Name: "train"})
	select {
	case e := <-got:
		assert.Equal(t, 1, e.To)
		assert.Equal(t, "train", e.Name)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusRoutesByType(t *testing.T) {
	bus := New()
	links := make(chan LinkChanged, 1)
	stats := make(chan FrameStats, 1)
	defer bus.Subscribe(func(e LinkChanged) { links <- e })()
	defer bus.Subscribe(func(e FrameStats) { stats <- e })()

	bus.Publish(FrameStats{FPS: 60})
	select {
	case e := <-stats:
		assert.Equal(t, 60.0, e.FPS)
	case <-time.After(time.Second):
		t.Fatal("stats not delivered")
	}
	select {
	case <-links:
		t.Fatal("link handler got a stats event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := New()
	got := make(chan CeilingChanged, 1)
	unsub := bus.Subscribe(func(e CeilingChanged) { got <- e })
	bus.Publish(CeilingChanged{Active: true})
	<-got
	unsub()

	bus.Publish(CeilingChanged{Active: false})
	select {
	case <-got:
		t.Fatal("received after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribeUnknownHandler(t *testing.T) {
	bus := New()
	require.NotPanics(t, func() { bus.Subscribe(func(string) {})() })
}
