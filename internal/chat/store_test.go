package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	msgs []Message
	err  error
}

func (f *fakeHistory) History(_ context.Context, _, _, _ string) ([]Message, error) {
	return f.msgs, f.err
}

func msg(sender, text, token string) Message {
	return Message{
		PosterID:       "poster",
		AcceptedUserID: "worker",
		JobID:          "job1",
		SenderID:       sender,
		Text:           text,
		ClientToken:    token,
	}
}

func TestStoreLoadHistory(t *testing.T) {
	hist := &fakeHistory{msgs: []Message{
		msg("poster", "hi", ""),
		msg("worker", "", ""), // malformed, dropped
		msg("worker", "hello", ""),
	}}
	s := NewStore("worker", hist)

	msgs, err := s.LoadHistory(context.Background(), "poster", "job1", "worker")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "hello", msgs[1].Text)

	t.Run("fetch failure keeps last known sequence", func(t *testing.T) {
		hist.err = errors.New("backend down")
		_, err := s.LoadHistory(context.Background(), "poster", "job1", "worker")
		require.Error(t, err)
		assert.Len(t, s.Messages(DeriveKey("poster", "worker", "job1")), 2)
	})

	t.Run("reload replaces the sequence", func(t *testing.T) {
		hist.err = nil
		hist.msgs = []Message{msg("poster", "only one", "")}
		msgs, err := s.LoadHistory(context.Background(), "poster", "job1", "worker")
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})
}

func TestStoreAppendLive(t *testing.T) {
	key := DeriveKey("poster", "worker", "job1")

	t.Run("appends in arrival order", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		s.AppendLive(msg("poster", "first", ""))
		s.AppendLive(msg("worker", "second", ""))
		msgs := s.Messages(key)
		require.Len(t, msgs, 2)
		assert.Equal(t, "first", msgs[0].Text)
	})

	t.Run("drops malformed messages", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		s.AppendLive(Message{PosterID: "poster", AcceptedUserID: "worker", JobID: "job1", SenderID: "poster"})
		assert.Empty(t, s.Messages(key))
	})

	t.Run("echo replaces optimistic copy in place", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		s.AppendLive(msg("worker", "optimistic", "tok-1"))
		s.AppendLive(msg("poster", "between", ""))

		echo := msg("worker", "optimistic", "tok-1")
		echo.ID = "srv-42"
		s.AppendLive(echo)

		msgs := s.Messages(key)
		require.Len(t, msgs, 2)
		assert.Equal(t, "srv-42", msgs[0].ID)
		assert.Equal(t, "between", msgs[1].Text)
	})

	t.Run("seen never reverts on echo", func(t *testing.T) {
		s := NewStore("poster", &fakeHistory{})
		s.AppendLive(msg("worker", "hey", "tok-2"))
		s.MarkSeen(key, "poster")

		echo := msg("worker", "hey", "tok-2")
		echo.ID = "srv-7"
		echo.Seen = false
		s.AppendLive(echo)

		msgs := s.Messages(key)
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].Seen)
	})

	t.Run("notifies subscribers", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		var got []Message
		cancel := s.Subscribe(func(m Message) { got = append(got, m) })
		defer cancel()

		s.AppendLive(msg("poster", "ping", ""))
		require.Len(t, got, 1)
		assert.Equal(t, "ping", got[0].Text)
	})
}

func TestStoreMarkSeen(t *testing.T) {
	key := DeriveKey("poster", "worker", "job1")
	s := NewStore("worker", &fakeHistory{})
	s.AppendLive(msg("poster", "from other", ""))
	s.AppendLive(msg("worker", "mine", ""))

	s.MarkSeen(key, "worker")

	msgs := s.Messages(key)
	assert.True(t, msgs[0].Seen, "other party's message flips")
	assert.False(t, msgs[1].Seen, "viewer's own message stays")

	// Idempotent.
	s.MarkSeen(key, "worker")
	assert.True(t, s.Messages(key)[0].Seen)
}

func TestStoreSummaries(t *testing.T) {
	key := DeriveKey("poster", "worker", "job1")

	t.Run("unread iff latest is from other and unseen", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		s.AppendLive(msg("poster", "unseen", ""))
		assert.True(t, s.Summarize(key).Unread)

		s.MarkSeen(key, "worker")
		assert.False(t, s.Summarize(key).Unread)
	})

	t.Run("own latest message never counts as unread", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		s.AppendLive(msg("poster", "unseen", ""))
		s.AppendLive(msg("worker", "reply", ""))
		assert.False(t, s.Summarize(key).Unread, "earlier unseen messages do not count")
	})

	t.Run("empty conversation", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		sum := s.Summarize(key)
		assert.Nil(t, sum.LastMessage)
		assert.False(t, sum.Unread)
	})

	t.Run("summaries cover all conversations", func(t *testing.T) {
		s := NewStore("worker", &fakeHistory{})
		s.AppendLive(msg("poster", "a", ""))
		other := msg("poster", "b", "")
		other.JobID = "job2"
		s.AppendLive(other)
		assert.Len(t, s.Summaries(), 2)
	})
}
