package settings

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Port is the boundary between the configuration record and the remote peer.
// The peer writes the live copy; the render loop only reads it. The persisted
// copy changes only through WriteThrough.
type Port struct {
	mu        sync.RWMutex
	live      Configuration
	persisted Configuration

	store Store
	log   zerolog.Logger

	cbMu         sync.Mutex
	onDisconnect []func()
}

// NewPort starts with live == persisted == initial.
func NewPort(store Store, initial Configuration, log zerolog.Logger) *Port {
	return &Port{
		live:      initial,
		persisted: initial,
		store:     store,
		log:       log.With().Str("component", "settings").Logger(),
	}
}

// ReadLive returns a snapshot of the live configuration.
func (p *Port) ReadLive() Configuration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.live
}

// Persisted returns a snapshot of the last saved configuration.
func (p *Port) Persisted() Configuration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.persisted
}

// WriteLive sets one field of the live configuration. Nothing is persisted.
func (p *Port) WriteLive(f Field, v uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.live.With(f, v)
	if err != nil {
		return err
	}
	p.live = next
	p.log.Debug().Stringer("field", f).Uint32("value", v).Msg("live write")
	return nil
}

// Read returns one field of the live configuration.
func (p *Port) Read(f Field) (uint32, error) {
	return p.ReadLive().Get(f)
}

// OnDisconnect registers fn to run each time the remote peer disconnects.
func (p *Port) OnDisconnect(fn func()) {
	p.cbMu.Lock()
	p.onDisconnect = append(p.onDisconnect, fn)
	p.cbMu.Unlock()
}

// HandleDisconnect runs the registered disconnect callbacks in order.
func (p *Port) HandleDisconnect() {
	p.cbMu.Lock()
	cbs := append([]func(){}, p.onDisconnect...)
	p.cbMu.Unlock()
	for _, fn := range cbs {
		fn()
	}
}

// WriteThrough saves the live configuration if it differs from the persisted
// one. It reports whether a write happened. On a failed save the persisted
// copy is left as it was so the next disconnect retries.
func (p *Port) WriteThrough() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	live := p.live
	live.Version = SchemaVersion
	if live == p.persisted {
		return false, nil
	}
	if err := p.store.Save(live); err != nil {
		return false, fmt.Errorf("save settings: %w", err)
	}
	p.persisted = live
	p.live.Version = SchemaVersion
	p.log.Info().
		Bool("run", live.Run).
		Int32("lights", live.LightCount).
		Int32("stripe", live.StripeWidth).
		Int32("car", live.CarLength).
		Int32("seconds", live.SecondsBetweenEffects).
		Msg("settings written")
	return true, nil
}
