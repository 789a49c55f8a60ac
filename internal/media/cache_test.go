package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheFetch(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("attachment-bytes"))
	}))
	defer srv.Close()

	c := NewCache(t.TempDir())
	url := srv.URL + "/uploads/note.webm"

	path, err := c.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".webm"), "keeps the extension")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "attachment-bytes", string(data))

	// Second fetch hits the cache, not the server.
	again, err := c.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, hits)

	_, ok := c.Path(url)
	assert.True(t, ok)
}

func TestCacheFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewCache(t.TempDir())
	_, err := c.Fetch(context.Background(), srv.URL+"/missing.png")
	require.Error(t, err)

	_, ok := c.Path(srv.URL + "/missing.png")
	assert.False(t, ok, "failed download leaves no cache entry")
}
