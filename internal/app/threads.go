package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusgig/gigcore/internal/chat"
	"github.com/campusgig/gigcore/internal/notify"
	"github.com/campusgig/gigcore/internal/transport"
)

// Thread identifies one job-tied conversation by its three coordinates.
type Thread struct {
	PosterID       string
	AcceptedUserID string
	JobID          string
}

// Key derives the conversation key.
func (t Thread) Key() chat.Key {
	return chat.DeriveKey(t.PosterID, t.AcceptedUserID, t.JobID)
}

func (t Thread) other(self string) string {
	if t.PosterID == self {
		return t.AcceptedUserID
	}
	return t.PosterID
}

// OpenThread opens the conversation: on the first open it joins the relay
// room and starts watching the other party's presence, every open loads
// authoritative history and marks the thread seen. History failure keeps the
// last-known sequence and is returned for a transient notification; the room
// join still holds.
func (a *App) OpenThread(ctx context.Context, t Thread) ([]chat.Message, error) {
	key := t.Key()

	a.threadMu.Lock()
	ot := a.open[key]
	if ot == nil {
		ot = &openThread{}
		a.open[key] = ot
	}
	ot.count++
	first := ot.count == 1
	a.threadMu.Unlock()

	if first {
		if err := a.ch.JoinRoom(string(key)); err != nil {
			// Tracked for replay; the join fires on reconnect.
			a.notes.Push(notify.KindSystem, "Offline, thread will sync on reconnect")
		}
		other := t.other(a.sess.UserID)
		cancel := a.pres.Subscribe(other, func(online bool) {
			if online {
				a.notes.Push(notify.KindPresence, "User is online")
			} else {
				a.notes.Push(notify.KindPresence, "User went offline")
			}
		})
		a.threadMu.Lock()
		ot.watch = cancel
		a.threadMu.Unlock()
	}

	msgs, err := a.store.LoadHistory(ctx, t.PosterID, t.JobID, t.AcceptedUserID)
	if err != nil {
		return a.store.Messages(key), err
	}

	_ = a.MarkThreadSeen(ctx, t)
	return msgs, nil
}

// CloseThread drops one reference to the conversation; the last close leaves
// the relay room and stops the presence watch. Stored messages stay
// available for the list surface.
func (a *App) CloseThread(t Thread) {
	key := t.Key()

	a.threadMu.Lock()
	ot := a.open[key]
	if ot == nil {
		a.threadMu.Unlock()
		return
	}
	ot.count--
	if ot.count > 0 {
		a.threadMu.Unlock()
		return
	}
	watch := ot.watch
	delete(a.open, key)
	a.threadMu.Unlock()

	if watch != nil {
		watch()
	}
	// Best effort: room membership dies with the connection anyway.
	_ = a.ch.LeaveRoom(string(key))
}

// Messages returns the thread's current sequence in arrival order.
func (a *App) Messages(t Thread) []chat.Message {
	return a.store.Messages(t.Key())
}

// Summaries returns per-conversation summaries for the list surface.
func (a *App) Summaries() []chat.Summary {
	return a.store.Summaries()
}

// MarkThreadSeen records that the viewer has looked at the thread: persists
// the boundary, broadcasts it, and flips local flags.
func (a *App) MarkThreadSeen(ctx context.Context, t Thread) error {
	return a.seen.MarkSeen(ctx, chat.SeenRequest{
		PosterID:       t.PosterID,
		AcceptedUserID: t.AcceptedUserID,
		JobID:          t.JobID,
		ViewerID:       a.sess.UserID,
	})
}

// SendText sends one text message: the optimistic copy lands in the store
// immediately, the relay emit carries the client token for the echo merge.
func (a *App) SendText(t Thread, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty message")
	}
	m := chat.Message{
		PosterID:       t.PosterID,
		AcceptedUserID: t.AcceptedUserID,
		JobID:          t.JobID,
		SenderID:       a.sess.UserID,
		Text:           text,
		ClientToken:    uuid.NewString(),
		CreatedAt:      time.Now(),
	}
	a.store.AppendLive(m)

	if err := a.ch.Emit(transport.EvtSendMessage, m); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendAttachment uploads the media to the REST backend first, then sends a
// message referencing the stored URL. Nothing is emitted if the upload
// fails, so the thread never shows a broken attachment.
func (a *App) SendAttachment(ctx context.Context, t Thread, filename string, r io.Reader) error {
	url, err := a.api.Upload(ctx, filename, r)
	if err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}

	m := chat.Message{
		PosterID:       t.PosterID,
		AcceptedUserID: t.AcceptedUserID,
		JobID:          t.JobID,
		SenderID:       a.sess.UserID,
		File:           url,
		FileType:       mediaKindFor(filename),
		ClientToken:    uuid.NewString(),
		CreatedAt:      time.Now(),
	}
	a.store.AppendLive(m)

	if err := a.ch.Emit(transport.EvtSendMessage, m); err != nil {
		return fmt.Errorf("send attachment: %w", err)
	}
	return nil
}

// mediaKindFor classifies an attachment by file extension. Voice notes are
// recorded as webm audio, so webm maps to audio rather than video.
func mediaKindFor(filename string) chat.MediaKind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3", ".wav", ".ogg", ".m4a", ".webm":
		return chat.MediaAudio
	case ".mp4", ".mov", ".mkv", ".avi":
		return chat.MediaVideo
	default:
		return chat.MediaImage
	}
}
