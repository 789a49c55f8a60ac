// Package app wires the CampusGig client together: identity, the REST
// client, the relay channel, presence, the chat store, seen reconciliation,
// call coordination and the content feed. It is the only package that
// imports more than one sibling.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/campusgig/gigcore/internal/api"
	"github.com/campusgig/gigcore/internal/call"
	"github.com/campusgig/gigcore/internal/chat"
	"github.com/campusgig/gigcore/internal/config"
	"github.com/campusgig/gigcore/internal/feed"
	"github.com/campusgig/gigcore/internal/identity"
	"github.com/campusgig/gigcore/internal/logbuf"
	"github.com/campusgig/gigcore/internal/media"
	"github.com/campusgig/gigcore/internal/notify"
	"github.com/campusgig/gigcore/internal/presence"
	"github.com/campusgig/gigcore/internal/transport"
)

// Options configures the client.
type Options struct {
	// BaseDir anchors relative paths from the config (token file).
	BaseDir string
	Cfg     config.Config
	Logs    *logbuf.Buffer
}

// App is the assembled client.
type App struct {
	cfg  config.Config
	sess *identity.Session
	logs *logbuf.Buffer

	api    *api.Client
	ch     *transport.Channel
	pres   *presence.Tracker
	store  *chat.Store
	seen   *chat.Reconciler
	calls  *call.Coordinator
	notes  *notify.Center
	feed   *feed.Service
	attach *media.Cache

	cancels []func()

	// Open threads are reference counted: several surfaces can hold the
	// same conversation, the room join and presence watch live from the
	// first open to the last close.
	threadMu sync.Mutex
	open     map[chat.Key]*openThread

	listMu chan struct{} // buffered(1), held while a resync is running

	// onList is read on the resync goroutine and written from whichever
	// goroutine registers the callback.
	onListMu sync.Mutex
	onList   func([]chat.Summary)
}

type openThread struct {
	count int
	watch func()
}

// New assembles the client without connecting anything. Start opens the
// relay link.
func New(opt Options) (*App, error) {
	sess, err := identity.Resolve(opt.Cfg.Identity, opt.BaseDir)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    opt.Cfg,
		sess:   sess,
		logs:   opt.Logs,
		open:   make(map[chat.Key]*openThread),
		listMu: make(chan struct{}, 1),
	}

	a.api = api.New(opt.Cfg.API.BaseURL, sess.Token,
		time.Duration(opt.Cfg.API.TimeoutSec)*time.Second)

	a.ch = transport.New(transport.Options{
		URL:          opt.Cfg.Relay.URL,
		Identity:     sess.UserID,
		ReconnectMin: time.Duration(opt.Cfg.Relay.ReconnectMinSec) * time.Second,
		ReconnectMax: time.Duration(opt.Cfg.Relay.ReconnectMaxSec) * time.Second,
		Ping:         time.Duration(opt.Cfg.Relay.PingSec) * time.Second,
	})

	a.notes = notify.NewCenter(opt.Cfg.Notify.Buffer,
		time.Duration(opt.Cfg.Notify.TTLSec)*time.Second)

	a.pres = presence.New(a.ch)
	a.store = chat.NewStore(sess.UserID, a.api)
	a.seen = chat.NewReconciler(a.store,
		&seenPersister{api: a.api},
		&seenBroadcaster{ch: a.ch},
		a.fireListChanged,
	)

	if !opt.Cfg.Call.Disabled {
		src := call.NewMediaSource(call.MediaOptions{
			STUNServers: opt.Cfg.Call.STUNServers,
			MaxWidth:    opt.Cfg.Call.MaxWidth,
			MaxHeight:   opt.Cfg.Call.MaxHeight,
		})
		a.calls = call.New(&callSignaler{ch: a.ch}, src, sess.UserID, sess.Name,
			func(text string) { a.notes.Push(notify.KindCall, text) })
	}

	a.feed = feed.NewService(a.api, feed.NewRenderer(opt.Cfg.Feed.HighlightStyle))
	a.attach = media.NewCache(opt.BaseDir)

	a.wireEvents()
	return a, nil
}

// Start opens the relay link. A failed first dial is not fatal: the
// background loop keeps retrying, and REST reads still work meanwhile.
func (a *App) Start(ctx context.Context) {
	if err := a.ch.Open(ctx); err != nil {
		log.Printf("APP: relay unavailable, retrying in background: %v", err)
		a.notes.Push(notify.KindSystem, "Relay unavailable, reconnecting")
	}
}

// Close tears everything down: in-progress call first so the remote party
// sees the hangup, then room memberships, then the trackers and the relay
// link.
func (a *App) Close() {
	if a.calls != nil {
		a.calls.Close()
	}

	a.threadMu.Lock()
	for key, ot := range a.open {
		if ot.watch != nil {
			ot.watch()
		}
		delete(a.open, key)
	}
	a.threadMu.Unlock()
	a.ch.LeaveAll()

	for _, cancel := range a.cancels {
		cancel()
	}
	a.pres.Close()
	a.ch.Close()
}

// Session returns the resolved identity.
func (a *App) Session() *identity.Session { return a.sess }

// API exposes the REST client for surfaces outside the chat core (jobs,
// bids, profile).
func (a *App) API() *api.Client { return a.api }

// Notifications returns the transient notification feed.
func (a *App) Notifications() *notify.Center { return a.notes }

// Feed returns the rendered campus content service.
func (a *App) Feed() *feed.Service { return a.feed }

// Attachments returns the on-disk cache for downloaded chat media.
func (a *App) Attachments() *media.Cache { return a.attach }

// Online reports presence for one user id.
func (a *App) Online(userID string) bool { return a.pres.GetOnline(userID) }

// PresenceStale reports whether the online set is currently unknown.
func (a *App) PresenceStale() bool { return a.pres.Stale() }

// Connected reports whether the relay link is up.
func (a *App) Connected() bool { return a.ch.Connected() }

// WatchPresence fires callback when userID's online flag flips.
func (a *App) WatchPresence(userID string, callback func(online bool)) (cancel func()) {
	return a.pres.Subscribe(userID, callback)
}

// SubscribeMessages fires fn for every stored live message.
func (a *App) SubscribeMessages(fn func(chat.Message)) (cancel func()) {
	return a.store.Subscribe(fn)
}

// OnListChanged registers the conversation-list callback, fired after every
// resync with fresh summaries. At most one is supported. Safe to call at any
// time, including after Start.
func (a *App) OnListChanged(fn func([]chat.Summary)) {
	a.onListMu.Lock()
	a.onList = fn
	a.onListMu.Unlock()
}

// notifyList delivers fresh summaries to the registered callback, if any.
func (a *App) notifyList(sums []chat.Summary) {
	a.onListMu.Lock()
	fn := a.onList
	a.onListMu.Unlock()
	if fn != nil {
		fn(sums)
	}
}

// Resync refetches the conversation list and replaces every thread's stored
// sequence, then recomputes summaries.
func (a *App) Resync(ctx context.Context) ([]chat.Summary, error) {
	convs, err := a.api.Conversations(ctx, a.sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("resync conversations: %w", err)
	}
	for _, conv := range convs {
		if len(conv.Messages) == 0 {
			continue
		}
		a.store.Replace(conv.Messages[0].Key(), conv.Messages)
	}
	return a.store.Summaries(), nil
}

// fireListChanged runs a resync in the background and delivers fresh
// summaries to the registered callback. Overlapping triggers collapse into
// one run.
func (a *App) fireListChanged() {
	select {
	case a.listMu <- struct{}{}:
	default:
		return
	}
	go func() {
		defer func() { <-a.listMu }()

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(a.cfg.API.TimeoutSec)*time.Second)
		defer cancel()

		sums, err := a.Resync(ctx)
		if err != nil {
			log.Printf("APP: list resync failed: %v", err)
			return
		}
		a.notifyList(sums)
	}()
}
