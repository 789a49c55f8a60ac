package logbuf

import (
	"fmt"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferLineSplitting(t *testing.T) {
	b := New(10)

	fmt.Fprint(b, "first line\nsec")
	fmt.Fprint(b, "ond line\n\n")

	got := b.Snapshot()
	require.Len(t, got, 2, "partial writes assemble, blank lines drop")
	assert.Equal(t, "first line", got[0].Msg)
	assert.Equal(t, "second line", got[1].Msg)
}

func TestBufferAsLogOutput(t *testing.T) {
	b := New(10)
	logger := log.New(b, "", 0)
	logger.Printf("TRANSPORT: connected")

	got := b.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "TRANSPORT: connected", got[0].Msg)
}

func TestBufferSubscribe(t *testing.T) {
	b := New(10)
	ch, cancel := b.Subscribe()

	fmt.Fprint(b, "hello\n")
	select {
	case e := <-ch:
		assert.Equal(t, "hello", e.Msg)
	default:
		t.Fatal("no delivery")
	}

	cancel()
	cancel() // idempotent
}
