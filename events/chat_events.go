package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/team-portal-chat/domain/chat"
)

// MessageSentEvent is emitted after a message has been appended to a
// channel's history and pushed to its members.
type MessageSentEvent struct {
	Message domain.Message `json:"message"`
}

// UserJoinedEvent is emitted when a connection joins a channel.
type UserJoinedEvent struct {
	Channel   string    `json:"channel"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when a connection leaves a channel, whether by
// switching away or by disconnecting.
type UserLeftEvent struct {
	Channel   string    `json:"channel"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ChannelSwitchedEvent is emitted on a completed channel switch.
type ChannelSwitchedEvent struct {
	Username  string    `json:"username"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"chat",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"chat",
		"UserLeft",
		"v1",
	)

	ChannelSwitchedV1 = helper.EventDefinition[ChannelSwitchedEvent](
		"chat",
		"ChannelSwitched",
		"v1",
	)
)
