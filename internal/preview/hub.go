// Package preview streams pushed frames to browsers over a websocket so the
// strip can be watched remotely. The hub is an output driver: tee it next to
// the hardware driver.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultThrottle caps the stream at about 20 frames per second.
const DefaultThrottle = 50 * time.Millisecond

type frame struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	RGB     []byte `json:"rgb"`
}

type hello struct {
	Pixels int    `json:"pixels"`
	Driver string `json:"driver"`
}

// viewerQueue is how many encoded frames wait per viewer before new ones
// are dropped for it.
const viewerQueue = 4

type viewer struct {
	conn *websocket.Conn
	send chan []byte
	quit chan struct{}
	once sync.Once
}

type Hub struct {
	Pixels int
	Driver string

	throttle time.Duration
	clock    clockwork.Clock
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	clients  map[*viewer]bool
	lastEmit time.Time
	frameID  uint64

	pending chan frame
	done    chan struct{}
	once    sync.Once
}

func NewHub(pixels int, driver string, clock clockwork.Clock, log zerolog.Logger) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	h := &Hub{
		Pixels:   pixels,
		Driver:   driver,
		throttle: DefaultThrottle,
		clock:    clock,
		log:      log.With().Str("component", "preview").Logger(),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*viewer]bool{},
		pending:  make(chan frame, 1),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

// Write queues the frame for broadcast. It never blocks the render loop:
// frames arriving faster than the throttle, or while a broadcast is still
// pending, are dropped.
func (h *Hub) Write(rgb []byte) error {
	now := h.clock.Now()
	h.mu.Lock()
	if len(h.clients) == 0 || now.Sub(h.lastEmit) < h.throttle {
		h.mu.Unlock()
		return nil
	}
	h.lastEmit = now
	h.frameID++
	f := frame{T: now.UnixNano(), FrameID: h.frameID, RGB: append([]byte(nil), rgb...)}
	h.mu.Unlock()

	select {
	case h.pending <- f:
	default:
	}
	return nil
}

func (h *Hub) Close() error {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		vs := make([]*viewer, 0, len(h.clients))
		for v := range h.clients {
			vs = append(vs, v)
		}
		h.mu.Unlock()
		for _, v := range vs {
			h.drop(v)
		}
	})
	return nil
}

// Clients is the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades a viewer. Each viewer gets its own writer goroutine and
// a short queue; a viewer that falls behind loses frames, and one whose
// write fails is dropped.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b, _ := json.Marshal(hello{Pixels: h.Pixels, Driver: h.Driver})
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		conn.Close()
		return
	}
	v := &viewer{conn: conn, send: make(chan []byte, viewerQueue), quit: make(chan struct{})}
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		conn.Close()
		return
	default:
	}
	h.clients[v] = true
	h.mu.Unlock()

	go h.writeLoop(v)
	go func() {
		defer h.drop(v)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writeLoop(v *viewer) {
	for {
		select {
		case <-v.quit:
			return
		case b := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
			if err := v.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				h.log.Debug().Err(err).Msg("write frame; dropping viewer")
				h.drop(v)
				return
			}
		}
	}
}

func (h *Hub) drop(v *viewer) {
	h.mu.Lock()
	delete(h.clients, v)
	h.mu.Unlock()
	v.once.Do(func() {
		close(v.quit)
		v.conn.Close()
	})
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case f := <-h.pending:
			h.broadcast(f)
		}
	}
}

// broadcast queues f for every viewer without waiting on any of them.
func (h *Hub) broadcast(f frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.clients {
		select {
		case v.send <- b:
		default:
		}
	}
}
