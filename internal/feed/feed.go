package feed

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/campusgig/gigcore/internal/api"
)

// Source is the backend surface the feed reads from. *api.Client satisfies
// it.
type Source interface {
	News(ctx context.Context) ([]api.NewsItem, error)
	LiveNews(ctx context.Context) ([]api.LiveNewsItem, error)
	Discussions(ctx context.Context) ([]api.Discussion, error)
	Discussion(ctx context.Context, id string) (*api.Discussion, error)
}

// Article is a rendered news item.
type Article struct {
	ID        string
	Title     string
	HTML      template.HTML
	Image     string
	CreatedAt time.Time
}

// Thread is a rendered discussion with its comments.
type Thread struct {
	ID        string
	Title     string
	Author    string
	Tags      []string
	HTML      template.HTML
	Comments  []ThreadComment
	CreatedAt time.Time
}

// ThreadComment is one rendered reply.
type ThreadComment struct {
	Author    string
	HTML      template.HTML
	CreatedAt time.Time
}

// Service fetches campus content and renders it for display.
type Service struct {
	src Source
	r   *Renderer
}

// NewService wires a Source to a Renderer.
func NewService(src Source, r *Renderer) *Service {
	return &Service{src: src, r: r}
}

// News returns all posted news items, bodies rendered. Items whose body
// fails to render are skipped with the error reported.
func (s *Service) News(ctx context.Context) ([]Article, error) {
	items, err := s.src.News(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	out := make([]Article, 0, len(items))
	for _, it := range items {
		body, err := s.r.Render(it.Content)
		if err != nil {
			continue
		}
		out = append(out, Article{
			ID:        it.ID,
			Title:     it.Title,
			HTML:      body,
			Image:     it.Image,
			CreatedAt: it.CreatedAt,
		})
	}
	return out, nil
}

// LiveNews returns the external aggregated feed. Entries carry pre-rendered
// snippets, so only the snippet text passes through the renderer.
func (s *Service) LiveNews(ctx context.Context) ([]Article, error) {
	items, err := s.src.LiveNews(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch live news: %w", err)
	}
	out := make([]Article, 0, len(items))
	for _, it := range items {
		snippet := it.ContentSnippet
		if snippet == "" {
			snippet = it.Content
		}
		body, err := s.r.Render(snippet)
		if err != nil {
			continue
		}
		out = append(out, Article{
			ID:    it.Link,
			Title: it.Title,
			HTML:  body,
			Image: it.Image,
		})
	}
	return out, nil
}

// Discussions lists board posts with rendered bodies, comments omitted.
func (s *Service) Discussions(ctx context.Context) ([]Thread, error) {
	items, err := s.src.Discussions(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch discussions: %w", err)
	}
	out := make([]Thread, 0, len(items))
	for _, d := range items {
		t, err := s.renderThread(&d, false)
		if err != nil {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

// Thread fetches one discussion with its full rendered comment list.
func (s *Service) Thread(ctx context.Context, id string) (*Thread, error) {
	d, err := s.src.Discussion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch discussion %s: %w", id, err)
	}
	return s.renderThread(d, true)
}

func (s *Service) renderThread(d *api.Discussion, withComments bool) (*Thread, error) {
	body, err := s.r.Render(d.Content)
	if err != nil {
		return nil, err
	}
	t := &Thread{
		ID:        d.ID,
		Title:     d.Title,
		Author:    d.Author,
		Tags:      d.Tags,
		HTML:      body,
		CreatedAt: d.CreatedAt,
	}
	if !withComments {
		return t, nil
	}
	for _, c := range d.Comments {
		ch, err := s.r.Render(c.Content)
		if err != nil {
			continue
		}
		t.Comments = append(t.Comments, ThreadComment{
			Author:    c.Author,
			HTML:      ch,
			CreatedAt: c.CreatedAt,
		})
	}
	return t, nil
}
