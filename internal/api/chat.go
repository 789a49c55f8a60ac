package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/campusgig/gigcore/internal/chat"
)

// Participant is one side of a conversation as populated by the backend.
type Participant struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Conversation is one entry of the conversation-list response. Messages are
// embedded newest-last, matching the backend's storage order.
type Conversation struct {
	ID           string         `json:"_id"`
	Poster       Participant    `json:"posterId"`
	AcceptedUser Participant    `json:"acceptedUserId"`
	Messages     []chat.Message `json:"messages"`
}

// Valid reports whether both participants are fully populated. The backend
// can return half-populated entries when a referenced user was deleted; the
// list surface skips those.
func (c *Conversation) Valid() bool {
	return c.Poster.ID != "" && c.Poster.Name != "" &&
		c.AcceptedUser.ID != "" && c.AcceptedUser.Name != ""
}

// Conversations fetches the conversation list for userID.
func (c *Client) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	var out []Conversation
	if err := c.get(ctx, "/chat/user/"+url.PathEscape(userID), &out); err != nil {
		return nil, err
	}
	valid := out[:0]
	for _, conv := range out {
		if conv.Valid() {
			valid = append(valid, conv)
		}
	}
	return valid, nil
}

// History fetches the full message history for one job-tied thread.
func (c *Client) History(ctx context.Context, posterID, jobID, acceptedUserID string) ([]chat.Message, error) {
	path := fmt.Sprintf("/chat/%s/%s/%s",
		url.PathEscape(posterID), url.PathEscape(jobID), url.PathEscape(acceptedUserID))
	var out []chat.Message
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkSeenRequest is the persist-seen-boundary payload.
type MarkSeenRequest struct {
	PosterID       string `json:"posterId"`
	AcceptedUserID string `json:"acceptedUserId"`
	JobID          string `json:"jobId"`
	ViewerID       string `json:"viewerId"`
}

// MarkSeen persists the viewer's seen boundary for one conversation.
func (c *Client) MarkSeen(ctx context.Context, req MarkSeenRequest) error {
	return c.post(ctx, "/chat/mark-seen", req, nil)
}

// Upload sends a media attachment (voice note, image, clip) as multipart
// form data and returns the URL the backend stored it under.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/chat/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("upload: status %d", resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("upload: backend returned no url")
	}
	return out.URL, nil
}
