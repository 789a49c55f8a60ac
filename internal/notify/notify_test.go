package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterRecent(t *testing.T) {
	t.Run("entries within ttl, oldest first", func(t *testing.T) {
		c := NewCenter(8, time.Minute)
		c.Push(KindMessage, "first")
		c.Push(KindCall, "second")

		got := c.Recent()
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Text)
		assert.Equal(t, KindCall, got[1].Kind)
	})

	t.Run("expired entries drop out", func(t *testing.T) {
		c := NewCenter(8, 10*time.Millisecond)
		c.Push(KindSystem, "old")
		time.Sleep(30 * time.Millisecond)
		c.Push(KindSystem, "fresh")

		got := c.Recent()
		require.Len(t, got, 1)
		assert.Equal(t, "fresh", got[0].Text)
	})

	t.Run("buffer overwrites oldest", func(t *testing.T) {
		c := NewCenter(2, time.Minute)
		c.Push(KindMessage, "a")
		c.Push(KindMessage, "b")
		c.Push(KindMessage, "c")

		got := c.Recent()
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].Text)
		assert.Equal(t, "c", got[1].Text)
	})
}

func TestCenterSubscribe(t *testing.T) {
	c := NewCenter(8, time.Minute)
	ch, cancel := c.Subscribe()

	c.Push(KindCall, "ring")
	select {
	case n := <-ch:
		assert.Equal(t, "ring", n.Text)
	case <-time.After(time.Second):
		t.Fatal("no delivery")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "cancel closes the channel")

	// Cancel twice is safe, push after cancel does not panic.
	cancel()
	c.Push(KindCall, "after")
}
