package preview

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHubStreamsFrames(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hub := NewHub(2, "fake", clock, zerolog.Nop())
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var hi hello
	require.NoError(t, conn.ReadJSON(&hi))
	assert.Equal(t, hello{Pixels: 2, Driver: "fake"}, hi)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, hub.Write([]byte{1, 2, 3, 4, 5, 6}))
	// Inside the throttle window: dropped.
	require.NoError(t, hub.Write([]byte{9, 9, 9, 9, 9, 9}))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, uint64(1), f.FrameID)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, f.RGB)

	clock.Advance(DefaultThrottle)
	require.NoError(t, hub.Write([]byte{7, 7, 7, 7, 7, 7}))
	f = frame{}
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, uint64(2), f.FrameID)
	assert.Equal(t, []byte{7, 7, 7, 7, 7, 7}, f.RGB)
}

func TestHubWithoutViewersIsNoop(t *testing.T) {
	hub := NewHub(1, "fake", clockwork.NewFakeClock(), zerolog.Nop())
	assert.NoError(t, hub.Write([]byte{1, 1, 1}))
	assert.NoError(t, hub.Close())
	assert.NoError(t, hub.Close())
}

func TestFrameJSON(t *testing.T) {
	b, err := json.Marshal(frame{FrameID: 3, RGB: []byte{255}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"rgb":"/w=="`)
}

func TestHubCloseStopsBroadcaster(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	hub := NewHub(4, "fake", clockwork.NewFakeClock(), zerolog.Nop())
	require.NoError(t, hub.Write(make([]byte, 12)))
	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())
}

func TestHubStalledViewerDoesNotBlockWrite(t *testing.T) {
	clock := clockwork.NewFakeClock()
	hub := NewHub(1<<14, "fake", clock, zerolog.Nop())
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	// This viewer reads the hello and then stops reading.
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	var hi hello
	require.NoError(t, conn.ReadJSON(&hi))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, time.Millisecond)

	rgb := make([]byte, 64<<10)
	var worst time.Duration
	for i := 0; i < 300; i++ {
		clock.Advance(DefaultThrottle)
		start := time.Now()
		require.NoError(t, hub.Write(rgb))
		if d := time.Since(start); d > worst {
			worst = d
		}
		time.Sleep(time.Millisecond)
	}
	assert.Less(t, worst, 20*time.Millisecond)
}
