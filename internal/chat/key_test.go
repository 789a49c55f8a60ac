package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	t.Run("argument order never matters", func(t *testing.T) {
		a := DeriveKey("user1", "user2", "job9")
		b := DeriveKey("user2", "user1", "job9")
		assert.Equal(t, a, b)
	})

	t.Run("sorted components joined with dash", func(t *testing.T) {
		k := DeriveKey("charlie", "alice", "bob")
		assert.Equal(t, Key("alice-bob-charlie"), k)
	})

	t.Run("different jobs give different keys", func(t *testing.T) {
		a := DeriveKey("user1", "user2", "job1")
		b := DeriveKey("user1", "user2", "job2")
		assert.NotEqual(t, a, b)
	})

	t.Run("message derives the same key", func(t *testing.T) {
		m := Message{PosterID: "p", AcceptedUserID: "a", JobID: "j"}
		assert.Equal(t, DeriveKey("p", "a", "j"), m.Key())
	})
}
