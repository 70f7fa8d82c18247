package chat

import "errors"

// Validation constants
const (
	// MaxContentLength bounds a user message after whitespace trimming,
	// measured in runes.
	MaxContentLength = 2000

	// DefaultHistoryLimit is the per-channel retention bound: only the most
	// recent N messages are kept, oldest trimmed on append.
	DefaultHistoryLimit = 500
)

// DefaultChannels is the fixed channel set. Channels are created once at
// module start and live for the process lifetime.
var DefaultChannels = []string{"general", "ops", "intel", "ai-lab"}

// Client-facing errors: reported to the originating connection only and
// never mutate shared state.
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrNotJoined      = errors.New("connection has not joined a channel")
	ErrEmptyContent   = errors.New("message content cannot be empty")
	ErrContentTooLong = errors.New("message exceeds maximum length")
)

// Internal invariant violations: these indicate a programming error in the
// connection lifecycle, are logged, and the offending event is ignored.
var (
	ErrUnknownConnection   = errors.New("connection is not registered")
	ErrDuplicateConnection = errors.New("connection is already registered")
)

// Outbound event names pushed through the transport hub. The payload for
// history_snapshot and member_list is a full replacement of the client's
// local state; new_message is an incremental delta.
const (
	EventHistorySnapshot = "history_snapshot"
	EventNewMessage      = "new_message"
	EventMemberList      = "member_list"
)
