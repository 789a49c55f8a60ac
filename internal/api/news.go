package api

import (
	"context"
	"net/url"
	"time"
)

// NewsItem is one campus news post. Content is markdown-authored.
type NewsItem struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// LiveNewsItem is one entry from the external live-news aggregation.
type LiveNewsItem struct {
	Title          string `json:"title"`
	Link           string `json:"link"`
	Content        string `json:"content,omitempty"`
	ContentSnippet string `json:"contentSnippet,omitempty"`
	Image          string `json:"image,omitempty"`
}

// News lists all posted news items.
func (c *Client) News(ctx context.Context) ([]NewsItem, error) {
	var out []NewsItem
	if err := c.get(ctx, "/news", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewsByID fetches a single news item.
func (c *Client) NewsByID(ctx context.Context, id string) (*NewsItem, error) {
	var out NewsItem
	if err := c.get(ctx, "/news/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LiveNews fetches the aggregated external feed.
func (c *Client) LiveNews(ctx context.Context) ([]LiveNewsItem, error) {
	var out []LiveNewsItem
	if err := c.get(ctx, "/news/live", &out); err != nil {
		return nil, err
	}
	return out, nil
}
