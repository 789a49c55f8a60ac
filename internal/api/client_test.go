package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgig/gigcore/internal/chat"
	"github.com/campusgig/gigcore/internal/util"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", 5*time.Second)
}

func TestClientAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]NewsItem{})
	})
	_, err := c.News(context.Background())
	require.NoError(t, err)
}

func TestClientErrorBody(t *testing.T) {
	t.Run("message field surfaces", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"message": "not your job"})
		})
		_, err := c.News(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not your job")
		assert.Contains(t, err.Error(), "403")
	})

	t.Run("bare status without body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.News(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/poster/job1/worker", r.URL.Path)
		json.NewEncoder(w).Encode([]chat.Message{
			{PosterID: "poster", AcceptedUserID: "worker", JobID: "job1", SenderID: "poster", Text: "hi"},
		})
	})

	msgs, err := c.History(context.Background(), "poster", "job1", "worker")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)
}

func TestMarkSeen(t *testing.T) {
	var got MarkSeenRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/mark-seen", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	})

	req := MarkSeenRequest{PosterID: "p", AcceptedUserID: "a", JobID: "j", ViewerID: "a"}
	require.NoError(t, c.MarkSeen(context.Background(), req))
	assert.Equal(t, req, got)
}

func TestConversationsFiltersInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/user/me", r.URL.Path)
		json.NewEncoder(w).Encode([]Conversation{
			{
				ID:           "good",
				Poster:       Participant{ID: "p", Name: "Poster"},
				AcceptedUser: Participant{ID: "a", Name: "Worker"},
			},
			{
				// Deleted user: half-populated participant.
				ID:     "bad",
				Poster: Participant{ID: "p", Name: "Poster"},
			},
		})
	})

	convs, err := c.Conversations(context.Background(), "me")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "good", convs[0].ID)
}

func TestUpload(t *testing.T) {
	t.Run("multipart round trip", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			assert.Equal(t, "note.webm", hdr.Filename)
			json.NewEncoder(w).Encode(map[string]string{"url": "/uploads/note.webm"})
		})

		url, err := c.Upload(context.Background(), "note.webm", strings.NewReader("audio-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "/uploads/note.webm", url)
	})

	t.Run("missing url in response", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{})
		})
		_, err := c.Upload(context.Background(), "x.png", strings.NewReader("img"))
		require.Error(t, err)
	})
}

func TestJobsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tutoring", r.URL.Query().Get("search"))
		assert.Equal(t, "poster", r.URL.Query().Get("role"))
		json.NewEncoder(w).Encode([]Job{{ID: "j1", Title: "Math tutor"}})
	})

	jobs, err := c.Jobs(context.Background(), "tutoring", "poster")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Math tutor", jobs[0].Title)
}

func TestNewTimeoutFallback(t *testing.T) {
	c := New("http://localhost:5000/api", "tok", 0)
	assert.Equal(t, util.DefaultFetchTimeout, c.http.Timeout)

	c = New("http://localhost:5000/api", "tok", 3*time.Second)
	assert.Equal(t, 3*time.Second, c.http.Timeout)
}
