package wsserver

import "encoding/json"

// Inbound message types (client to server).
const (
	TypeJoin          = "join"
	TypeSwitchChannel = "switch_channel"
	TypeSendMessage   = "send_message"
)

// Error codes reported back to the originating connection only.
const (
	CodeUnknownChannel = "unknown_channel"
	CodeNotJoined      = "not_joined"
	CodeEmptyContent   = "empty_content"
	CodeContentTooLong = "content_too_long"
	CodeRateLimited    = "rate_limited"
	CodeBadRequest     = "bad_request"
)

// ClientMessage is the client-to-server wire frame.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload establishes identity and the initial channel.
type JoinPayload struct {
	Username string `json:"username"`
	Channel  string `json:"channel"`
}

// SwitchPayload moves the connection to a different channel.
type SwitchPayload struct {
	Channel string `json:"channel"`
}

// SendPayload submits a user message. The channel field is accepted for
// wire compatibility but routing always follows the connection's presence.
type SendPayload struct {
	Channel string `json:"channel,omitempty"`
	Content string `json:"content"`
}

// ErrorPayload is pushed with event type "error" to the connection whose
// action failed. It never reaches other connections.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
