package link

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coreman2200/xmaslights/internal/settings"
)

// AckTimeout bounds how long a write waits for the render loop to apply it.
const AckTimeout = 2 * time.Second

type eventKind int

const (
	evConnect eventKind = iota
	evDisconnect
	evWrite
)

type event struct {
	kind  eventKind
	field settings.Field
	value uint32
	done  chan error
	// claimed by whichever side gets there first: apply or the ack timeout.
	claim *atomic.Bool
}

// Peripheral serves one central at a time on a websocket endpoint.
type Peripheral struct {
	Name string
	// OnChange, if set, is called from Poll when the link comes up or drops.
	OnChange func(connected bool)

	port     *settings.Port
	log      zerolog.Logger
	upgrader websocket.Upgrader
	events   chan event
	ackAfter time.Duration

	mu     sync.Mutex
	active *websocket.Conn

	connected atomic.Bool
}

func NewPeripheral(name string, port *settings.Port, log zerolog.Logger) *Peripheral {
	if name == "" {
		name = DefaultLocalName
	}
	return &Peripheral{
		Name:     name,
		port:     port,
		log:      log.With().Str("component", "link").Logger(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		events:   make(chan event, 64),
		ackAfter: AckTimeout,
	}
}

// Connected reports the link state as of the last Poll.
func (p *Peripheral) Connected() bool { return p.connected.Load() }

// Poll waits up to timeout for link activity and then applies everything
// queued. It returns the number of events applied. It must be called from
// the goroutine that owns the render loop.
func (p *Peripheral) Poll(timeout time.Duration) int {
	var first event
	if timeout > 0 {
		t := time.NewTimer(timeout)
		select {
		case first = <-p.events:
			t.Stop()
		case <-t.C:
			return 0
		}
	} else {
		select {
		case first = <-p.events:
		default:
			return 0
		}
	}
	n := 1
	p.apply(first)
	for {
		select {
		case ev := <-p.events:
			p.apply(ev)
			n++
		default:
			return n
		}
	}
}

func (p *Peripheral) apply(ev event) {
	switch ev.kind {
	case evConnect:
		p.connected.Store(true)
		p.log.Info().Msg("central connected")
		if p.OnChange != nil {
			p.OnChange(true)
		}
	case evDisconnect:
		p.connected.Store(false)
		p.log.Info().Msg("central disconnected")
		p.port.HandleDisconnect()
		if p.OnChange != nil {
			p.OnChange(false)
		}
	case evWrite:
		if !ev.claim.CompareAndSwap(false, true) {
			p.log.Debug().Stringer("field", ev.field).Msg("dropping write after ack timeout")
			return
		}
		ev.done <- p.port.WriteLive(ev.field, ev.value)
	}
}

// ServeHTTP upgrades the request and runs the central's session. A second
// central is refused with 409 while one is connected.
func (p *Peripheral) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		http.Error(w, ErrBusy.Error(), http.StatusConflict)
		return
	}
	conn, err := p.upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.mu.Unlock()
		p.log.Debug().Err(err).Msg("upgrade")
		return
	}
	p.active = conn
	p.mu.Unlock()

	defer func() {
		conn.Close()
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
		p.events <- event{kind: evDisconnect}
	}()

	p.events <- event{kind: evConnect}
	if err := conn.WriteJSON(advertisement(p.Name)); err != nil {
		return
	}
	for {
		var req Message
		if err := conn.ReadJSON(&req); err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				p.log.Debug().Err(err).Msg("read")
			}
			return
		}
		if err := conn.WriteJSON(p.handle(req)); err != nil {
			p.log.Debug().Err(err).Msg("write")
			return
		}
	}
}

// write hands the value to the render loop and waits for it to be applied.
// A write the loop has not picked up within ackAfter is withdrawn.
func (p *Peripheral) write(f settings.Field, v uint32) error {
	ev := event{kind: evWrite, field: f, value: v, done: make(chan error, 1), claim: new(atomic.Bool)}
	p.events <- ev
	t := time.NewTimer(p.ackAfter)
	defer t.Stop()
	select {
	case err := <-ev.done:
		return err
	case <-t.C:
		if ev.claim.CompareAndSwap(false, true) {
			return ErrNotApplied
		}
		return <-ev.done
	}
}

func (p *Peripheral) handle(req Message) Message {
	resp := Message{Op: req.Op, UUID: req.UUID}
	f, err := FieldFor(req.UUID)
	if err != nil {
		resp.Error = ErrUnknownCharacteristic.Error()
		return resp
	}
	switch req.Op {
	case "read":
	case "write":
		if req.Value == nil {
			resp.Error = "write without value"
			return resp
		}
		if err := p.write(f, *req.Value); err != nil {
			resp.Error = err.Error()
			return resp
		}
	default:
		resp.Error = "unknown op " + req.Op
		return resp
	}
	v, err := p.port.Read(f)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Value = &v
	return resp
}
