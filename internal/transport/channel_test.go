package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRelay is a minimal in-process relay: it records every envelope a
// client sends and can push envelopes back.
type testRelay struct {
	t    *testing.T
	srv  *httptest.Server
	recv chan Envelope

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	r := &testRelay{t: t, recv: make(chan Envelope, 64)}
	upgrader := websocket.Upgrader{}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.mu.Lock()
		r.conns = append(r.conns, conn)
		r.mu.Unlock()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			r.recv <- env
		}
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *testRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http")
}

func (r *testRelay) push(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	b, err := json.Marshal(Envelope{Event: event, Data: data})
	require.NoError(t, err)

	r.mu.Lock()
	conn := r.conns[len(r.conns)-1]
	r.mu.Unlock()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func (r *testRelay) dropClients() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns {
		c.Close()
	}
	r.conns = nil
}

func (r *testRelay) expect(t *testing.T, event string) Envelope {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case env := <-r.recv:
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", event)
		}
	}
}

func openChannel(t *testing.T, relay *testRelay, identity string) *Channel {
	t.Helper()
	ch := New(Options{
		URL:          relay.url(),
		Identity:     identity,
		ReconnectMin: 20 * time.Millisecond,
		ReconnectMax: 100 * time.Millisecond,
		Ping:         time.Second,
	})
	require.NoError(t, ch.Open(context.Background()))
	t.Cleanup(ch.Close)
	return ch
}

func TestChannelRegistersOnConnect(t *testing.T) {
	relay := newTestRelay(t)
	openChannel(t, relay, "alice")

	env := relay.expect(t, EvtRegisterUser)
	var id string
	require.NoError(t, json.Unmarshal(env.Data, &id))
	assert.Equal(t, "alice", id)

	relay.expect(t, EvtUserOnline)
}

func TestChannelEmit(t *testing.T) {
	relay := newTestRelay(t)
	ch := openChannel(t, relay, "alice")
	relay.expect(t, EvtUserOnline)

	require.NoError(t, ch.Emit(EvtSendMessage, map[string]string{"text": "hi"}))
	env := relay.expect(t, EvtSendMessage)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "hi", payload["text"])
}

func TestChannelDispatch(t *testing.T) {
	relay := newTestRelay(t)
	ch := openChannel(t, relay, "alice")
	relay.expect(t, EvtUserOnline)

	got := make(chan json.RawMessage, 1)
	cancel := ch.On(EvtNewMessage, func(data json.RawMessage) { got <- data })
	defer cancel()

	relay.push(t, EvtNewMessage, map[string]string{"text": "yo"})

	select {
	case data := <-got:
		var payload map[string]string
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "yo", payload["text"])
	case <-time.After(3 * time.Second):
		t.Fatal("handler never fired")
	}
}

func TestChannelRoomReplayOnReconnect(t *testing.T) {
	relay := newTestRelay(t)
	ch := openChannel(t, relay, "alice")
	relay.expect(t, EvtUserOnline)

	require.NoError(t, ch.JoinRoom("room-1"))
	relay.expect(t, EvtJoinRoom)

	reconnected := make(chan struct{}, 4)
	cancel := ch.OnConnectivity(func(connected bool) {
		if connected {
			reconnected <- struct{}{}
		}
	})
	defer cancel()

	relay.dropClients()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("never reconnected")
	}

	// The fresh connection replays identity and the tracked room.
	relay.expect(t, EvtRegisterUser)
	env := relay.expect(t, EvtJoinRoom)
	var room string
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, "room-1", room)
}

func TestChannelNoLossAfterReconnect(t *testing.T) {
	relay := newTestRelay(t)
	ch := openChannel(t, relay, "alice")
	relay.expect(t, EvtUserOnline)

	reconnected := make(chan struct{}, 4)
	cancel := ch.OnConnectivity(func(connected bool) {
		if connected {
			reconnected <- struct{}{}
		}
	})
	defer cancel()

	relay.dropClients()

	select {
	case <-reconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("never reconnected")
	}
	relay.expect(t, EvtUserOnline)

	// The first connection's pump is gone; every envelope of the burst must
	// surface on the relay via the fresh connection.
	const burst = 20
	for i := 0; i < burst; i++ {
		require.NoError(t, ch.Emit(EvtSendMessage, map[string]int{"seq": i}))
	}

	seen := make(map[int]bool, burst)
	for len(seen) < burst {
		env := relay.expect(t, EvtSendMessage)
		var payload map[string]int
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		seen[payload["seq"]] = true
	}
	assert.Len(t, seen, burst)
}

func TestChannelEmitWhileDown(t *testing.T) {
	relay := newTestRelay(t)
	ch := openChannel(t, relay, "alice")
	relay.expect(t, EvtUserOnline)

	ch.Close()
	assert.ErrorIs(t, ch.Emit(EvtSendMessage, "x"), ErrNotConnected)
}

func TestChannelOpenWithRelayDown(t *testing.T) {
	ch := New(Options{
		URL:          "ws://127.0.0.1:1/ws",
		Identity:     "alice",
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
	})
	defer ch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.Error(t, ch.Open(ctx), "first dial fails but Open does not hang")
	assert.False(t, ch.Connected())
	assert.ErrorIs(t, ch.Emit(EvtSendMessage, "x"), ErrNotConnected)
}
