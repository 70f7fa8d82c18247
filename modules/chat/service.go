package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domain "github.com/example/team-portal-chat/domain/chat"
)

// Broadcaster delivers a single named event to one connection. Delivery is
// best-effort at-most-once: implementations must never block the caller
// (slow consumers are dropped at the transport layer, not waited for).
type Broadcaster interface {
	Push(connID, event string, payload any)
}

// ProfileSource supplies display decoration for a username. Title must be
// non-blocking (an in-process cache read); Warm may start a background
// fetch and returns immediately.
type ProfileSource interface {
	Title(username string) string
	Warm(username string)
}

// EventSink receives domain events after the authoritative push has been
// enqueued. Implementations are observational only; client-visible ordering
// never depends on them.
type EventSink interface {
	MessageSent(msg domain.Message)
	UserJoined(channel, username string)
	UserLeft(channel, username string)
	ChannelSwitched(username, from, to string)
}

// Service is the connection lifecycle manager and message router. It owns
// the only write paths into the ChannelStore and PresenceTracker.
//
// A single mutex spans each event's state mutation and the enqueueing of its
// outbound pushes, so every member of a channel observes appends in the same
// order even though each connection is read by its own goroutine. Per-client
// delivery order is then preserved by the transport's per-connection send
// queue.
type Service struct {
	mu       sync.Mutex
	store    *ChannelStore
	presence *PresenceTracker
	bcast    Broadcaster
	profiles ProfileSource // may be nil
	sink     EventSink     // may be nil
}

// NewService creates a Service over the given collaborators. profiles and
// sink may be nil.
func NewService(store *ChannelStore, presence *PresenceTracker, bcast Broadcaster, profiles ProfileSource, sink EventSink) *Service {
	return &Service{
		store:    store,
		presence: presence,
		bcast:    bcast,
		profiles: profiles,
		sink:     sink,
	}
}

// Store exposes the channel registry for read-only API surfaces.
func (s *Service) Store() *ChannelStore { return s.store }

// Presence exposes the presence tracker for read-only API surfaces.
func (s *Service) Presence() *PresenceTracker { return s.presence }

// Join registers the connection in channel, pushes the channel's history
// and member list to the joiner, and notifies the channel's other members.
// Unknown channels leave all shared state untouched.
func (s *Service) Join(connID string, username domain.ClaimedIdentity, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists(channel) {
		return ErrUnknownChannel
	}
	if err := s.presence.Register(connID, username, channel); err != nil {
		return err
	}
	if s.profiles != nil {
		s.profiles.Warm(string(username))
	}

	// Authoritative snapshot to the joiner first, so every later delta
	// applies on top of it.
	history, _ := s.store.History(channel)
	s.bcast.Push(connID, EventHistorySnapshot, history)

	notice := s.systemMessage(channel, fmt.Sprintf("%s joined the channel", username))
	_ = s.store.Append(channel, notice)

	members := s.presence.UsernamesIn(channel)
	for _, id := range s.presence.ConnectionsIn(channel) {
		if id != connID {
			s.bcast.Push(id, EventNewMessage, notice)
		}
		s.bcast.Push(id, EventMemberList, members)
	}

	if s.sink != nil {
		s.sink.UserJoined(channel, string(username))
		s.sink.MessageSent(notice)
	}
	return nil
}

// Switch moves the connection to newChannel: leave notice to the old
// channel, fresh snapshot to the mover, join notice to the new channel, and
// updated member lists on both sides. Switching to the current channel
// resynchronizes the caller (snapshot + member list) without any notices.
func (s *Service) Switch(connID, newChannel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Exists(newChannel) {
		return ErrUnknownChannel
	}
	username, current, ok := s.presence.Lookup(connID)
	if !ok {
		return ErrUnknownConnection
	}

	if current == newChannel {
		history, _ := s.store.History(newChannel)
		s.bcast.Push(connID, EventHistorySnapshot, history)
		s.bcast.Push(connID, EventMemberList, s.presence.UsernamesIn(newChannel))
		return nil
	}

	old, err := s.presence.Move(connID, newChannel)
	if err != nil {
		return err
	}

	// Old channel: leave notice plus shrunk member list.
	leftNotice := s.systemMessage(old, fmt.Sprintf("%s left the channel", username))
	_ = s.store.Append(old, leftNotice)
	oldMembers := s.presence.UsernamesIn(old)
	for _, id := range s.presence.ConnectionsIn(old) {
		s.bcast.Push(id, EventNewMessage, leftNotice)
		s.bcast.Push(id, EventMemberList, oldMembers)
	}

	// Mover: wholesale replacement of visible history.
	history, _ := s.store.History(newChannel)
	s.bcast.Push(connID, EventHistorySnapshot, history)

	// New channel: join notice to the others, member list to everyone.
	joinNotice := s.systemMessage(newChannel, fmt.Sprintf("%s joined the channel", username))
	_ = s.store.Append(newChannel, joinNotice)
	newMembers := s.presence.UsernamesIn(newChannel)
	for _, id := range s.presence.ConnectionsIn(newChannel) {
		if id != connID {
			s.bcast.Push(id, EventNewMessage, joinNotice)
		}
		s.bcast.Push(id, EventMemberList, newMembers)
	}

	if s.sink != nil {
		s.sink.UserLeft(old, string(username))
		s.sink.UserJoined(newChannel, string(username))
		s.sink.ChannelSwitched(string(username), old, newChannel)
		s.sink.MessageSent(leftNotice)
		s.sink.MessageSent(joinNotice)
	}
	return nil
}

// Submit validates and routes a user message to the connection's current
// channel, returning the appended message. The client-declared channel is
// ignored; presence is authoritative.
func (s *Service) Submit(connID, content string) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, channel, ok := s.presence.Lookup(connID)
	if !ok {
		return domain.Message{}, ErrNotJoined
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Message{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return domain.Message{}, ErrContentTooLong
	}

	msg := domain.Message{
		ID:        uuid.New().String(),
		Channel:   channel,
		Type:      domain.MessageUser,
		Author:    string(username),
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if s.profiles != nil {
		msg.AuthorTitle = s.profiles.Title(string(username))
	}

	_ = s.store.Append(channel, msg)
	for _, id := range s.presence.ConnectionsIn(channel) {
		s.bcast.Push(id, EventNewMessage, msg)
	}

	if s.sink != nil {
		s.sink.MessageSent(msg)
	}
	return msg, nil
}

// Disconnect removes the connection from presence and notifies its former
// channel. It is idempotent: a second call for the same connID is a no-op.
func (s *Service) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, channel, ok := s.presence.Unregister(connID)
	if !ok {
		return
	}

	notice := s.systemMessage(channel, fmt.Sprintf("%s left the channel", username))
	_ = s.store.Append(channel, notice)
	members := s.presence.UsernamesIn(channel)
	for _, id := range s.presence.ConnectionsIn(channel) {
		s.bcast.Push(id, EventNewMessage, notice)
		s.bcast.Push(id, EventMemberList, members)
	}

	if s.sink != nil {
		s.sink.UserLeft(channel, string(username))
		s.sink.MessageSent(notice)
	}
}

func (s *Service) systemMessage(channel, content string) domain.Message {
	return domain.Message{
		ID:        uuid.New().String(),
		Channel:   channel,
		Type:      domain.MessageSystem,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
