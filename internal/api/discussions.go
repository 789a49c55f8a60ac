package api

import (
	"context"
	"net/url"
	"time"
)

// Discussion is one board post with its comment thread.
type Discussion struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags,omitempty"`
	Comments  []Comment `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Comment is one reply on a discussion post.
type Comment struct {
	ID        string    `json:"_id,omitempty"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Discussions lists all board posts.
func (c *Client) Discussions(ctx context.Context) ([]Discussion, error) {
	var out []Discussion
	if err := c.get(ctx, "/discussions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Discussion fetches a single post with its comments.
func (c *Client) Discussion(ctx context.Context, id string) (*Discussion, error) {
	var out Discussion
	if err := c.get(ctx, "/discussions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDiscussion posts a new discussion.
func (c *Client) CreateDiscussion(ctx context.Context, title, content string, tags []string) (*Discussion, error) {
	body := map[string]any{"title": title, "content": content, "tags": tags}
	var out Discussion
	if err := c.post(ctx, "/discussions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment appends a reply to a discussion post.
func (c *Client) AddComment(ctx context.Context, id, content string) error {
	body := map[string]string{"content": content}
	return c.post(ctx, "/discussions/"+url.PathEscape(id)+"/comment", body, nil)
}
