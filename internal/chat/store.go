package chat

import (
	"context"
	"fmt"
	"sync"
)

// HistorySource fetches authoritative message history from the REST
// collaborator. Satisfied by api.Client.
type HistorySource interface {
	History(ctx context.Context, posterID, jobID, acceptedUserID string) ([]Message, error)
}

// Store is the ordered, deduplicated in-memory log of messages per
// conversation. History loads replace a conversation's sequence; live
// messages append in arrival order, never re-sorted by timestamp, so a
// late-arriving live message always lands after the loaded batch even when
// clock skew says otherwise.
type Store struct {
	self string
	hist HistorySource

	mu     sync.RWMutex
	convs  map[Key][]Message
	tokens map[Key]map[string]int // client token -> index into convs[key]

	subMu  sync.Mutex
	subs   map[int]func(Message)
	nextID int
}

// NewStore creates a Store for the given viewer identity.
func NewStore(selfID string, hist HistorySource) *Store {
	return &Store{
		self:   selfID,
		hist:   hist,
		convs:  make(map[Key][]Message),
		tokens: make(map[Key]map[string]int),
		subs:   make(map[int]func(Message)),
	}
}

// LoadHistory fetches the thread from the REST backend and replaces the
// in-memory sequence for its key. On fetch failure the last-known sequence
// stays untouched and the error is returned for a transient notification.
func (s *Store) LoadHistory(ctx context.Context, posterID, jobID, acceptedUserID string) ([]Message, error) {
	msgs, err := s.hist.History(ctx, posterID, jobID, acceptedUserID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	key := DeriveKey(posterID, acceptedUserID, jobID)
	s.Replace(key, msgs)
	return s.Messages(key), nil
}

// Replace swaps the stored sequence for key with msgs, dropping malformed
// entries and rebuilding the client-token index. Used by history loads and
// by bulk conversation-list resyncs.
func (s *Store) Replace(key Key, msgs []Message) {
	kept := make([]Message, 0, len(msgs))
	toks := make(map[string]int)
	for _, m := range msgs {
		if m.Empty() {
			continue
		}
		if m.ClientToken != "" {
			toks[m.ClientToken] = len(kept)
		}
		kept = append(kept, m)
	}

	s.mu.Lock()
	s.convs[key] = kept
	s.tokens[key] = toks
	s.mu.Unlock()
}

// AppendLive ingests one message from the transport. Malformed messages
// (no text, no attachment) are dropped silently. When an authoritative echo
// carries the client token of an optimistic copy already in the log, it
// replaces that copy in place instead of duplicating it.
func (s *Store) AppendLive(m Message) {
	if m.Empty() {
		return
	}
	key := m.Key()

	s.mu.Lock()
	if m.ClientToken != "" {
		if idx, ok := s.tokens[key][m.ClientToken]; ok {
			// Seen never reverts: keep a local true over an echoed false.
			if s.convs[key][idx].Seen {
				m.Seen = true
			}
			s.convs[key][idx] = m
			s.mu.Unlock()
			s.notify(m)
			return
		}
		if s.tokens[key] == nil {
			s.tokens[key] = make(map[string]int)
		}
		s.tokens[key][m.ClientToken] = len(s.convs[key])
	}
	s.convs[key] = append(s.convs[key], m)
	s.mu.Unlock()

	s.notify(m)
}

// Messages returns the conversation's sequence in arrival order.
func (s *Store) Messages(key Key) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.convs[key]))
	copy(out, s.convs[key])
	return out
}

// MarkSeen flips the seen flag on every message in the conversation that the
// viewer did not send. Forward-only: a seen message never reverts.
func (s *Store) MarkSeen(key Key, viewerID string) {
	s.mu.Lock()
	for i := range s.convs[key] {
		if s.convs[key][i].SenderID != viewerID {
			s.convs[key][i].Seen = true
		}
	}
	s.mu.Unlock()
}

// Summary is the derived per-conversation view for the list surface.
type Summary struct {
	Key          Key
	Participants [2]string
	LastMessage  *Message

	// Unread means "something new since the viewer last looked": true iff
	// the latest message was sent by someone else and is not seen. Earlier
	// unseen messages do not count; only the latest one is inspected.
	Unread bool
}

// Summarize computes the summary for one conversation.
func (s *Store) Summarize(key Key) Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summarizeLocked(key)
}

// Summaries computes summaries for all known conversations.
func (s *Store) Summaries() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Summary, 0, len(s.convs))
	for key := range s.convs {
		out = append(out, s.summarizeLocked(key))
	}
	return out
}

func (s *Store) summarizeLocked(key Key) Summary {
	sum := Summary{Key: key}
	msgs := s.convs[key]
	if len(msgs) == 0 {
		return sum
	}
	last := msgs[len(msgs)-1]
	sum.LastMessage = &last
	sum.Participants = [2]string{last.PosterID, last.AcceptedUserID}
	sum.Unread = last.SenderID != s.self && !last.Seen
	return sum
}

// Subscribe registers a callback fired for every stored live message
// (including authoritative replacements). Returns the unsubscribe.
func (s *Store) Subscribe(fn func(Message)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(m Message) {
	s.subMu.Lock()
	fns := make([]func(Message), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

// SelfID returns the viewer identity the store was built for.
func (s *Store) SelfID() string { return s.self }
