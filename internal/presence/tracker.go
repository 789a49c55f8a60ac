// Package presence tracks which peer identities currently hold an open relay
// connection. Presence is best-effort and deliberately not linearizable:
// every inbound snapshot fully replaces the previous one, so the last
// delivered snapshot wins regardless of when it was sent.
package presence

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/campusgig/gigcore/internal/transport"
)

// Events is the transport surface the tracker consumes. Satisfied by
// *transport.Channel.
type Events interface {
	On(event string, h transport.Handler) (cancel func())
	OnConnectivity(fn func(connected bool)) (cancel func())
}

// Tracker maintains the online set from relay snapshots.
type Tracker struct {
	mu     sync.RWMutex
	online map[string]bool
	stale  bool

	subMu  sync.Mutex
	subs   map[string]map[int]func(bool)
	nextID int

	cancels []func()
}

// New creates a Tracker wired to ch. It consumes the onlineUsers list and
// the updateUserStatus map snapshots, and resets to unknown on
// every transport drop.
func New(ch Events) *Tracker {
	t := &Tracker{
		online: make(map[string]bool),
		stale:  true,
		subs:   make(map[string]map[int]func(bool)),
	}

	t.cancels = append(t.cancels,
		ch.On(transport.EvtOnlineUsers, t.handleOnlineUsers),
		ch.On(transport.EvtUpdateUserStatus, t.handleStatusMap),
		ch.OnConnectivity(func(connected bool) {
			if !connected {
				t.replace(nil, true)
			}
		}),
	)
	return t
}

// handleOnlineUsers consumes the bulk list snapshot: every listed identity
// is online, everyone else is offline.
func (t *Tracker) handleOnlineUsers(data json.RawMessage) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		log.Printf("PRESENCE: bad onlineUsers payload: %v", err)
		return
	}
	next := make(map[string]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}
	t.replace(next, false)
}

// handleStatusMap consumes the bulk map snapshot. The map replaces the whole
// set; partial updates are never merged.
func (t *Tracker) handleStatusMap(data json.RawMessage) {
	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		log.Printf("PRESENCE: bad updateUserStatus payload: %v", err)
		return
	}
	t.replace(m, false)
}

func (t *Tracker) replace(next map[string]bool, stale bool) {
	if next == nil {
		next = make(map[string]bool)
	}

	t.mu.Lock()
	prev := t.online
	t.online = next
	t.stale = stale
	t.mu.Unlock()

	// Notify subscribers whose identity flipped.
	t.subMu.Lock()
	type firing struct {
		fn     func(bool)
		online bool
	}
	var fire []firing
	for id, fns := range t.subs {
		was := prev[id]
		now := next[id]
		if was == now {
			continue
		}
		for _, fn := range fns {
			fire = append(fire, firing{fn, now})
		}
	}
	t.subMu.Unlock()

	for _, f := range fire {
		f.fn(f.online)
	}
}

// GetOnline reports whether identity is currently online. False while the
// set is stale (transport down, no snapshot yet).
func (t *Tracker) GetOnline(identity string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.stale {
		return false
	}
	return t.online[identity]
}

// Stale reports whether the set is unknown (no snapshot since last connect).
func (t *Tracker) Stale() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stale
}

// Subscribe fires callback whenever identity's online flag flips. Returns
// the unsubscribe.
func (t *Tracker) Subscribe(identity string, callback func(online bool)) (cancel func()) {
	t.subMu.Lock()
	id := t.nextID
	t.nextID++
	if t.subs[identity] == nil {
		t.subs[identity] = make(map[int]func(bool))
	}
	t.subs[identity][id] = callback
	t.subMu.Unlock()

	return func() {
		t.subMu.Lock()
		delete(t.subs[identity], id)
		if len(t.subs[identity]) == 0 {
			delete(t.subs, identity)
		}
		t.subMu.Unlock()
	}
}

// Close detaches the tracker from the transport.
func (t *Tracker) Close() {
	for _, cancel := range t.cancels {
		cancel()
	}
}
