// Package client is the chat session adapter used by portal clients. It
// owns the websocket connection, replays the join intent after every
// (re)connect, and reconciles local state against the server's pushes:
// snapshots replace local state wholesale, deltas apply incrementally.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	domain "github.com/example/team-portal-chat/domain/chat"
	"github.com/example/team-portal-chat/modules/wsserver"
)

// pingInterval keeps NATed connections alive; the server answers pings with
// pongs automatically.
const pingInterval = 30 * time.Second

// maxLocalHistory bounds the messages retained client-side between
// snapshots.
const maxLocalHistory = 500

// ErrClosed is returned by actions on a closed session.
var ErrClosed = errors.New("session closed")

// ErrDisconnected is returned by actions attempted while the session is
// between connections. The action is not queued; callers resubmit once a
// Connected update arrives.
var ErrDisconnected = errors.New("not connected")

// Config configures a Session.
type Config struct {
	URL      string // e.g. ws://localhost:3000/ws
	Username string
	Channel  string // initial channel

	// Reconnect policy. Zero values select the package defaults
	// (500ms base, 30s cap, retry forever).
	BackoffBase time.Duration
	BackoffCap  time.Duration
	MaxAttempts int
}

// Update is one state change pushed to the consumer. Exactly one of the
// concrete types below.
type Update interface{ isUpdate() }

// Snapshot replaces all visible history (join or channel switch).
type Snapshot struct{ Messages []domain.Message }

// MessageReceived appends one message (user or system).
type MessageReceived struct{ Message domain.Message }

// MemberList replaces the online-user list for the current channel.
type MemberList struct{ Members []string }

// ActionError reports a rejected action (bad channel, empty message, rate
// limit). Local state is untouched; the user may retry.
type ActionError struct{ Code, Message string }

// ConnState reports connection status transitions. Attempt is the
// reconnect attempt that produced the transition, 0 for the initial
// connect.
type ConnState struct {
	Connected bool
	Attempt   int
	Err       error
}

func (Snapshot) isUpdate()        {}
func (MessageReceived) isUpdate() {}
func (MemberList) isUpdate()      {}
func (ActionError) isUpdate()     {}
func (ConnState) isUpdate()       {}

// State is a copy of the session's reconciled local state.
type State struct {
	Channel   string
	Messages  []domain.Message
	Members   []string
	Connected bool
}

// Session is one live client connection with automatic reconnection.
type Session struct {
	cfg     Config
	updates chan Update
	done    chan struct{}
	cancel  context.CancelFunc

	mu        sync.Mutex // guards everything below
	conn      *websocket.Conn
	channel   string
	messages  []domain.Message
	members   []string
	connected bool
	closed    bool
}

// Dial connects, sends the join intent, and starts the session loop. The
// initial connection failing is returned synchronously; later drops are
// retried with capped exponential backoff and surfaced as ConnState
// updates.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.URL == "" || cfg.Username == "" || cfg.Channel == "" {
		return nil, fmt.Errorf("client: URL, Username and Channel are required")
	}

	s := &Session{
		cfg:     cfg,
		updates: make(chan Update, 64),
		done:    make(chan struct{}),
		channel: cfg.Channel,
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", cfg.URL, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	if err := s.sendJoin(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("client: join: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(runCtx)
	return s, nil
}

// Updates returns the stream of state changes. The channel is closed when
// the session ends.
func (s *Session) Updates() <-chan Update { return s.updates }

// State returns a copy of the current reconciled state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Channel:   s.channel,
		Connected: s.connected,
		Messages:  make([]domain.Message, len(s.messages)),
		Members:   make([]string, len(s.members)),
	}
	copy(st.Messages, s.messages)
	copy(st.Members, s.members)
	return st
}

// SendMessage submits a user message to the current channel.
func (s *Session) SendMessage(content string) error {
	return s.send(wsserver.TypeSendMessage, wsserver.SendPayload{Content: content})
}

// SwitchChannel requests a move to channel. Local history is cleared
// immediately; the authoritative snapshot for the new channel replaces it
// when it arrives. If the connection drops mid-switch, the reconnect join
// targets the new channel.
func (s *Session) SwitchChannel(channel string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.channel = channel
	s.messages = nil
	s.members = nil
	s.mu.Unlock()

	return s.send(wsserver.TypeSwitchChannel, wsserver.SwitchPayload{Channel: channel})
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.mu.Unlock()

	s.cancel()
	close(s.done)
	if conn != nil {
		conn.Close()
	}
	return nil
}

// run supervises the connection: read and ping loops via errgroup, then
// backoff and redial until the session is closed or attempts run out.
func (s *Session) run(ctx context.Context) {
	defer close(s.updates)

	for {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.readLoop(gctx) })
		g.Go(func() error { return s.pingLoop(gctx) })
		err := g.Wait()

		s.mu.Lock()
		s.connected = false
		closed := s.closed
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()

		if closed || ctx.Err() != nil {
			return
		}
		s.emit(ConnState{Connected: false, Err: err})

		if !s.reconnect(ctx) {
			return
		}
	}
}

// reconnect dials with backoff until success, close, or the attempt cap.
// On success it re-sends the join intent for the session's current channel
// so the server pushes a fresh snapshot.
func (s *Session) reconnect(ctx context.Context) bool {
	for attempt := 1; s.cfg.MaxAttempts == 0 || attempt <= s.cfg.MaxAttempts; attempt++ {
		delay := backoffDelay(s.cfg.BackoffBase, s.cfg.BackoffCap, attempt)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
		if err != nil {
			s.emit(ConnState{Connected: false, Attempt: attempt, Err: err})
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return false
		}
		s.conn = conn
		s.connected = true
		s.mu.Unlock()

		if err := s.sendJoin(); err != nil {
			s.emit(ConnState{Connected: false, Attempt: attempt, Err: err})
			conn.Close()
			continue
		}

		s.emit(ConnState{Connected: true, Attempt: attempt})
		return true
	}
	return false
}

// readLoop applies server pushes to local state in arrival order.
func (s *Session) readLoop(ctx context.Context) error {
	conn := s.currentConn()
	if conn == nil {
		return ErrDisconnected
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		s.apply(env.Type, env.Payload)
	}
}

// apply reconciles one server event: snapshots replace, deltas append.
func (s *Session) apply(event string, payload json.RawMessage) {
	switch event {
	case "history_snapshot":
		var msgs []domain.Message
		if err := json.Unmarshal(payload, &msgs); err != nil {
			return
		}
		s.mu.Lock()
		s.messages = msgs
		s.mu.Unlock()
		s.emit(Snapshot{Messages: msgs})

	case "new_message":
		var msg domain.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return
		}
		s.mu.Lock()
		s.messages = append(s.messages, msg)
		if len(s.messages) > maxLocalHistory {
			s.messages = s.messages[len(s.messages)-maxLocalHistory:]
		}
		s.mu.Unlock()
		s.emit(MessageReceived{Message: msg})

	case "member_list":
		var members []string
		if err := json.Unmarshal(payload, &members); err != nil {
			return
		}
		s.mu.Lock()
		s.members = members
		s.mu.Unlock()
		s.emit(MemberList{Members: members})

	case "error":
		var e wsserver.ErrorPayload
		if err := json.Unmarshal(payload, &e); err != nil {
			return
		}
		s.emit(ActionError{Code: e.Code, Message: e.Message})
	}
}

// pingLoop keeps the connection alive while the read loop is idle.
func (s *Session) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			conn := s.currentConn()
			if conn == nil {
				return ErrDisconnected
			}
			s.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			s.mu.Unlock()
			if err != nil {
				return err
			}
		}
	}
}

func (s *Session) sendJoin() error {
	s.mu.Lock()
	channel := s.channel
	s.mu.Unlock()
	return s.send(wsserver.TypeJoin, wsserver.JoinPayload{Username: s.cfg.Username, Channel: channel})
}

// send marshals and writes one client frame. Writes are serialized under
// the session mutex; the websocket allows only one concurrent writer.
func (s *Session) send(msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("client: marshal %s: %w", msgType, err)
	}
	frame, err := json.Marshal(wsserver.ClientMessage{Type: msgType, Payload: data})
	if err != nil {
		return fmt.Errorf("client: marshal frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.conn == nil || !s.connected {
		return ErrDisconnected
	}
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Session) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// emit delivers an update unless the session is shutting down.
func (s *Session) emit(u Update) {
	select {
	case s.updates <- u:
	case <-s.done:
	}
}
