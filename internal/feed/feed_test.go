package feed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgig/gigcore/internal/api"
)

func TestRenderer(t *testing.T) {
	r := NewRenderer("")

	t.Run("markdown to html", func(t *testing.T) {
		out, err := r.Render("# Title\n\nSome **bold** text.")
		require.NoError(t, err)
		assert.Contains(t, string(out), "<h1")
		assert.Contains(t, string(out), "<strong>bold</strong>")
	})

	t.Run("output is minified", func(t *testing.T) {
		out, err := r.Render("para one\n\npara two")
		require.NoError(t, err)
		assert.NotContains(t, string(out), "\n\n")
	})

	t.Run("fenced code gets highlighted", func(t *testing.T) {
		out, err := r.Render("```go\nfunc main() {}\n```")
		require.NoError(t, err)
		// Chroma emits inline-styled spans for the chosen style.
		assert.Contains(t, string(out), "<pre")
		assert.Contains(t, string(out), "span")
	})
}

type fakeSource struct {
	news        []api.NewsItem
	live        []api.LiveNewsItem
	discussions []api.Discussion
	err         error
}

func (f *fakeSource) News(context.Context) ([]api.NewsItem, error)         { return f.news, f.err }
func (f *fakeSource) LiveNews(context.Context) ([]api.LiveNewsItem, error) { return f.live, f.err }
func (f *fakeSource) Discussions(context.Context) ([]api.Discussion, error) {
	return f.discussions, f.err
}
func (f *fakeSource) Discussion(_ context.Context, id string) (*api.Discussion, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.discussions {
		if f.discussions[i].ID == id {
			return &f.discussions[i], nil
		}
	}
	return nil, errors.New("not found")
}

func TestServiceNews(t *testing.T) {
	src := &fakeSource{news: []api.NewsItem{
		{ID: "n1", Title: "Exam week", Content: "Study *hard*."},
	}}
	s := NewService(src, NewRenderer(""))

	items, err := s.News(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Exam week", items[0].Title)
	assert.Contains(t, string(items[0].HTML), "<em>hard</em>")
}

func TestServiceLiveNews(t *testing.T) {
	src := &fakeSource{live: []api.LiveNewsItem{
		{Title: "Campus wifi down", Link: "https://example.org/1", ContentSnippet: "short"},
		{Title: "No snippet", Link: "https://example.org/2", Content: "full body"},
	}}
	s := NewService(src, NewRenderer(""))

	items, err := s.LiveNews(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Contains(t, string(items[0].HTML), "short")
	assert.Contains(t, string(items[1].HTML), "full body", "falls back to content")
}

func TestServiceThread(t *testing.T) {
	src := &fakeSource{discussions: []api.Discussion{{
		ID:      "d1",
		Title:   "Best study spots",
		Author:  "alice",
		Content: "The library.",
		Comments: []api.Comment{
			{Author: "bob", Content: "Agreed!"},
		},
	}}}
	s := NewService(src, NewRenderer(""))

	t.Run("list omits comments", func(t *testing.T) {
		threads, err := s.Discussions(context.Background())
		require.NoError(t, err)
		require.Len(t, threads, 1)
		assert.Empty(t, threads[0].Comments)
	})

	t.Run("single thread renders comments", func(t *testing.T) {
		th, err := s.Thread(context.Background(), "d1")
		require.NoError(t, err)
		require.Len(t, th.Comments, 1)
		assert.Equal(t, "bob", th.Comments[0].Author)
		assert.True(t, strings.Contains(string(th.Comments[0].HTML), "Agreed!"))
	})

	t.Run("fetch error propagates", func(t *testing.T) {
		src.err = errors.New("backend down")
		_, err := s.Discussions(context.Background())
		assert.Error(t, err)
		src.err = nil
	})
}
