// Package notify collects transient user-facing events (incoming calls,
// unread messages, presence changes) into a bounded in-memory feed that the
// console UI drains.
package notify

import (
	"sync"
	"time"

	"github.com/campusgig/gigcore/internal/util"
)

// Kind classifies a notification for display filtering.
type Kind string

const (
	KindMessage  Kind = "message"
	KindCall     Kind = "call"
	KindPresence Kind = "presence"
	KindSystem   Kind = "system"
)

// Notification is one entry in the feed.
type Notification struct {
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// Center holds recent notifications and fans new ones out to subscribers.
type Center struct {
	ttl time.Duration

	mu   sync.Mutex
	buf  *util.RingBuffer[Notification]
	subs map[int]chan Notification
	next int
}

// NewCenter creates a Center keeping at most size entries, each visible for
// ttl in Recent. size and ttl fall back to sane defaults when non-positive.
func NewCenter(size int, ttl time.Duration) *Center {
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Center{
		ttl:  ttl,
		buf:  util.NewRingBuffer[Notification](size),
		subs: make(map[int]chan Notification),
	}
}

// Push records a notification and notifies subscribers. Slow subscribers are
// skipped rather than blocking the caller.
func (c *Center) Push(kind Kind, text string) {
	n := Notification{Kind: kind, Text: text, TS: time.Now()}

	c.mu.Lock()
	c.buf.Push(n)
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
		}
	}
	c.mu.Unlock()
}

// Recent returns the buffered notifications that have not aged past the TTL,
// oldest first.
func (c *Center) Recent() []Notification {
	cutoff := time.Now().Add(-c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.buf.Snapshot()
	out := make([]Notification, 0, len(all))
	for _, n := range all {
		if n.TS.After(cutoff) {
			out = append(out, n)
		}
	}
	return out
}

// Subscribe returns a channel of future notifications and a cancel func.
func (c *Center) Subscribe() (<-chan Notification, func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	ch := make(chan Notification, 16)
	c.subs[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
		c.mu.Unlock()
	}
}
