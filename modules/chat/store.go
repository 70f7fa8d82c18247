package chat

import (
	"sync"

	domain "github.com/example/team-portal-chat/domain/chat"
)

// ChannelStore owns the per-channel message buffers for the fixed channel
// set. The channel set is immutable after construction; only the buffers
// change.
type ChannelStore struct {
	mu      sync.RWMutex
	names   []string // fixed, in declaration order
	history map[string][]domain.Message
	maxHist int
}

// NewChannelStore creates a store for the given fixed channel set.
// maxHistory bounds each channel's buffer; oldest messages are trimmed on
// append.
func NewChannelStore(channels []string, maxHistory int) *ChannelStore {
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryLimit
	}
	s := &ChannelStore{
		names:   make([]string, len(channels)),
		history: make(map[string][]domain.Message, len(channels)),
		maxHist: maxHistory,
	}
	copy(s.names, channels)
	for _, name := range channels {
		s.history[name] = make([]domain.Message, 0)
	}
	return s
}

// Exists reports whether name is in the fixed channel set.
func (s *ChannelStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.history[name]
	return ok
}

// Names returns the channel names in declaration order.
func (s *ChannelStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Append adds msg to the tail of its channel's buffer, trimming the oldest
// entries beyond the retention bound.
func (s *ChannelStore) Append(channel string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.history[channel]
	if !ok {
		return ErrUnknownChannel
	}
	buf = append(buf, msg)
	if len(buf) > s.maxHist {
		buf = buf[len(buf)-s.maxHist:]
	}
	s.history[channel] = buf
	return nil
}

// History returns a copy of the channel's buffer in append order.
func (s *ChannelStore) History(channel string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf, ok := s.history[channel]
	if !ok {
		return nil, ErrUnknownChannel
	}
	out := make([]domain.Message, len(buf))
	copy(out, buf)
	return out, nil
}
