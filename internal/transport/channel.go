package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campusgig/gigcore/internal/util"
)

// ErrNotConnected is returned by Emit while the relay link is down. Pending
// sends are never queued or retried here; retry is the caller's call.
var ErrNotConnected = errors.New("transport: not connected")

// Handler receives the payload of one inbound event. Handlers run on the
// read goroutine, in delivery order, one at a time. Every consumer relies
// on that single logical thread.
type Handler func(data json.RawMessage)

// Options configures a Channel.
type Options struct {
	// URL of the relay websocket endpoint.
	URL string

	// Identity announced via registerUser/userOnline on every (re)connect.
	Identity string

	// Reconnect backoff bounds. Delay doubles from Min up to Max.
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	// Ping interval for websocket keepalive.
	Ping time.Duration
}

// Channel is the process-wide relay connection. Exactly one physical
// websocket exists per Channel; reconnects re-announce identity and
// re-join all rooms joined so far (idempotent on the relay side).
type Channel struct {
	opts Options

	mu        sync.Mutex
	conn      *websocket.Conn
	quit      chan struct{} // closed when conn is dropped; one per connection
	connected bool
	rooms     map[string]struct{}

	handlerMu sync.RWMutex
	handlers  map[string]map[int]Handler
	connSubs  map[int]func(bool)
	nextID    int

	sendCh chan Envelope
	done   chan struct{}
	closed sync.Once
}

// New creates a Channel. Open starts it.
func New(opts Options) *Channel {
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = time.Second
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = 30 * time.Second
	}
	if opts.Ping <= 0 {
		opts.Ping = 20 * time.Second
	}
	return &Channel{
		opts:     opts,
		rooms:    make(map[string]struct{}),
		handlers: make(map[string]map[int]Handler),
		connSubs: make(map[int]func(bool)),
		sendCh:   make(chan Envelope, 64),
		done:     make(chan struct{}),
	}
}

// Open starts the connect/reconnect loop. It returns once the first dial
// attempt has resolved; later drops are handled in the background.
func (c *Channel) Open(ctx context.Context) error {
	err := c.dial(ctx)
	go c.run(ctx)
	return err
}

// run redials with exponential backoff whenever the connection drops.
func (c *Channel) run(ctx context.Context) {
	delay := c.opts.ReconnectMin
	for {
		c.mu.Lock()
		connected := c.connected
		c.mu.Unlock()

		if connected {
			delay = c.opts.ReconnectMin
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-time.After(delay):
		}

		if err := c.dial(ctx); err != nil {
			log.Printf("TRANSPORT: reconnect failed: %v (next attempt in %s)", err, delay)
			delay *= 2
			if delay > c.opts.ReconnectMax {
				delay = c.opts.ReconnectMax
			}
		}
	}
}

// dial establishes the websocket, replays identity registration and room
// joins, and starts the per-connection pumps.
func (c *Channel) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, util.DefaultConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	quit := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.quit = quit
	c.connected = true
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	log.Printf("TRANSPORT: connected to %s", c.opts.URL)

	// Re-announce identity, then presence, then re-join every room.
	// The relay treats all three as idempotent.
	c.writeEnvelope(conn, mustEnvelope(EvtRegisterUser, c.opts.Identity))
	c.writeEnvelope(conn, mustEnvelope(EvtUserOnline, c.opts.Identity))
	for _, r := range rooms {
		c.writeEnvelope(conn, mustEnvelope(EvtJoinRoom, r))
	}

	go c.readPump(conn)
	go c.writePump(conn, quit)

	c.notifyConn(true)
	return nil
}

func (c *Channel) readPump(conn *websocket.Conn) {
	defer c.dropConn(conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Printf("TRANSPORT: read error: %v", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("TRANSPORT: malformed frame dropped: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

// writePump drains sendCh onto one connection. quit belongs to that
// connection: once it closes the pump exits immediately, so a stale pump
// never steals an envelope meant for its successor.
func (c *Channel) writePump(conn *websocket.Conn, quit chan struct{}) {
	ticker := time.NewTicker(c.opts.Ping)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-quit:
			return
		case env := <-c.sendCh:
			if err := c.writeEnvelope(conn, env); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(util.ShortTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *Channel) writeEnvelope(conn *websocket.Conn, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// dropConn marks the channel disconnected if conn is still current.
// Dependents treat presence and call state as stale until reconnect.
func (c *Channel) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	quit := c.quit
	c.quit = nil
	c.mu.Unlock()

	if quit != nil {
		close(quit)
	}
	_ = conn.Close()
	c.notifyConn(false)
}

func (c *Channel) dispatch(env Envelope) {
	c.handlerMu.RLock()
	hs := make([]Handler, 0, len(c.handlers[env.Event]))
	for _, h := range c.handlers[env.Event] {
		hs = append(hs, h)
	}
	c.handlerMu.RUnlock()

	for _, h := range hs {
		h(env.Data)
	}
}

// Emit sends one event to the relay. Returns ErrNotConnected while the link
// is down; the message is not queued.
func (c *Channel) Emit(event string, payload any) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	env := Envelope{Event: event, Data: data}

	select {
	case c.sendCh <- env:
		return nil
	case <-c.done:
		return ErrNotConnected
	}
}

// On registers a handler for an inbound event and returns its unsubscribe.
func (c *Channel) On(event string, h Handler) (cancel func()) {
	c.handlerMu.Lock()
	id := c.nextID
	c.nextID++
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	c.handlers[event][id] = h
	c.handlerMu.Unlock()

	return func() {
		c.handlerMu.Lock()
		delete(c.handlers[event], id)
		c.handlerMu.Unlock()
	}
}

// OnConnectivity registers a callback fired with true on every successful
// (re)connect and false on every drop.
func (c *Channel) OnConnectivity(fn func(connected bool)) (cancel func()) {
	c.handlerMu.Lock()
	id := c.nextID
	c.nextID++
	c.connSubs[id] = fn
	c.handlerMu.Unlock()

	return func() {
		c.handlerMu.Lock()
		delete(c.connSubs, id)
		c.handlerMu.Unlock()
	}
}

func (c *Channel) notifyConn(connected bool) {
	c.handlerMu.RLock()
	subs := make([]func(bool), 0, len(c.connSubs))
	for _, fn := range c.connSubs {
		subs = append(subs, fn)
	}
	c.handlerMu.RUnlock()
	for _, fn := range subs {
		fn(connected)
	}
}

// Connected reports whether the relay link is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// JoinRoom joins a conversation room and remembers it for replay on
// reconnect. Joining an already-joined room is a no-op on the relay.
func (c *Channel) JoinRoom(room string) error {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	return c.Emit(EvtJoinRoom, room)
}

// LeaveRoom leaves a room and stops replaying it.
func (c *Channel) LeaveRoom(room string) error {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
	return c.Emit(EvtLeaveRoom, room)
}

// LeaveAll leaves every tracked room, used on teardown so the relay does
// not keep routing room traffic to a vanishing client.
func (c *Channel) LeaveAll() {
	c.mu.Lock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.rooms = make(map[string]struct{})
	c.mu.Unlock()

	for _, r := range rooms {
		_ = c.Emit(EvtLeaveRoom, r)
	}
}

// Close tears the connection down. Idempotent.
func (c *Channel) Close() {
	c.closed.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		quit := c.quit
		c.conn = nil
		c.quit = nil
		c.connected = false
		c.mu.Unlock()
		if quit != nil {
			close(quit)
		}
		if conn != nil {
			_ = conn.Close()
		}
	})
}

func mustEnvelope(event string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads here are strings we constructed; this cannot fail.
		panic(err)
	}
	return Envelope{Event: event, Data: data}
}
