package chat

import "time"

// MediaKind is the attachment type carried by a message.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Message is one chat message as it appears on the wire, both in REST history
// responses and in relay sendMessage/newMessage events. Exactly one of
// Text/File is non-empty; a message with neither is malformed and dropped.
type Message struct {
	// ID is assigned by the backend. Empty on an optimistic local copy
	// until the authoritative echo arrives.
	ID string `json:"_id,omitempty"`

	PosterID       string `json:"posterId"`
	AcceptedUserID string `json:"acceptedUserId"`
	JobID          string `json:"jobId"`
	SenderID       string `json:"senderId"`

	Text     string    `json:"text"`
	File     string    `json:"file"`
	FileType MediaKind `json:"fileType,omitempty"`

	// ClientToken is a client-generated idempotency token used to reconcile
	// the optimistic local copy with the authoritative echo. The original
	// wire contract had no merge key; without one an echoed message would
	// duplicate its optimistic twin.
	ClientToken string `json:"clientToken,omitempty"`

	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Key derives the conversation key this message belongs to.
func (m *Message) Key() Key {
	return DeriveKey(m.PosterID, m.AcceptedUserID, m.JobID)
}

// Empty reports whether the message carries neither text nor attachment.
func (m *Message) Empty() bool {
	return m.Text == "" && m.File == ""
}

// Attachment describes the media payload, if any.
type Attachment struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"mediaKind"`
}

// Attachment returns the media payload, or nil for a text message.
func (m *Message) Attachment() *Attachment {
	if m.File == "" {
		return nil
	}
	return &Attachment{URL: m.File, Kind: m.FileType}
}
