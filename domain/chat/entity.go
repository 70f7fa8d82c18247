package chat

import "time"

// ClaimedIdentity is the display name a client supplies with its join intent.
// It is never checked against the portal's identity store, so it must be
// treated as untrusted presentation data, not as an authenticated principal.
type ClaimedIdentity string

// MessageType distinguishes user-authored content from server-generated
// join/leave notices.
type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageSystem MessageType = "system"
)

// Message is a single entry in a channel's history. Messages are immutable
// once appended.
type Message struct {
	ID          string      `json:"id"`
	Channel     string      `json:"channel"`
	Type        MessageType `json:"type"`
	Author      string      `json:"author,omitempty"`
	AuthorTitle string      `json:"author_title,omitempty"`
	Content     string      `json:"content"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Channel describes one of the fixed chat channels.
type Channel struct {
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}
