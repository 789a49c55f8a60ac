package presence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusgig/gigcore/internal/transport"
)

// fakeBus captures handlers so tests can inject relay events directly.
type fakeBus struct {
	handlers map[string]transport.Handler
	conn     func(bool)
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]transport.Handler)}
}

func (b *fakeBus) On(event string, h transport.Handler) func() {
	b.handlers[event] = h
	return func() { delete(b.handlers, event) }
}

func (b *fakeBus) OnConnectivity(fn func(bool)) func() {
	b.conn = fn
	return func() { b.conn = nil }
}

func (b *fakeBus) emit(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	b.handlers[event](data)
}

func TestTrackerSnapshots(t *testing.T) {
	bus := newFakeBus()
	tr := New(bus)
	defer tr.Close()

	t.Run("stale until first snapshot", func(t *testing.T) {
		assert.True(t, tr.Stale())
		assert.False(t, tr.GetOnline("alice"))
	})

	t.Run("onlineUsers list replaces the set", func(t *testing.T) {
		bus.emit(t, transport.EvtOnlineUsers, []string{"alice", "bob"})
		assert.False(t, tr.Stale())
		assert.True(t, tr.GetOnline("alice"))
		assert.False(t, tr.GetOnline("carol"))
	})

	t.Run("status map replaces, never merges", func(t *testing.T) {
		bus.emit(t, transport.EvtUpdateUserStatus, map[string]bool{"carol": true})
		assert.True(t, tr.GetOnline("carol"))
		assert.False(t, tr.GetOnline("alice"), "absent from the new snapshot")
	})

	t.Run("last delivered snapshot wins", func(t *testing.T) {
		bus.emit(t, transport.EvtOnlineUsers, []string{"alice"})
		bus.emit(t, transport.EvtOnlineUsers, []string{})
		assert.False(t, tr.GetOnline("alice"))
	})

	t.Run("malformed payload is ignored", func(t *testing.T) {
		bus.emit(t, transport.EvtOnlineUsers, []string{"alice"})
		bus.handlers[transport.EvtOnlineUsers]([]byte("{not json"))
		assert.True(t, tr.GetOnline("alice"))
	})
}

func TestTrackerDisconnect(t *testing.T) {
	bus := newFakeBus()
	tr := New(bus)
	defer tr.Close()

	bus.emit(t, transport.EvtOnlineUsers, []string{"alice"})
	assert.True(t, tr.GetOnline("alice"))

	bus.conn(false)
	assert.True(t, tr.Stale())
	assert.False(t, tr.GetOnline("alice"), "unknown, not offline")
}

func TestTrackerSubscribe(t *testing.T) {
	bus := newFakeBus()
	tr := New(bus)
	defer tr.Close()

	var flips []bool
	cancel := tr.Subscribe("alice", func(online bool) { flips = append(flips, online) })

	bus.emit(t, transport.EvtOnlineUsers, []string{"alice"})
	bus.emit(t, transport.EvtOnlineUsers, []string{"alice"}) // no flip
	bus.emit(t, transport.EvtOnlineUsers, []string{})

	assert.Equal(t, []bool{true, false}, flips)

	cancel()
	bus.emit(t, transport.EvtOnlineUsers, []string{"alice"})
	assert.Len(t, flips, 2, "no callbacks after unsubscribe")
}
