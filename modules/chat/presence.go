package chat

import (
	"sort"
	"sync"

	domain "github.com/example/team-portal-chat/domain/chat"
)

// presenceEntry records one live connection's identity and current channel.
type presenceEntry struct {
	username domain.ClaimedIdentity
	channel  string
	seq      uint64 // join order, for stable member lists
}

// PresenceTracker maps connection identities to {username, current channel}.
// A registered connection belongs to exactly one channel at any instant;
// Move performs the leave-old/join-new handoff atomically under the lock.
type PresenceTracker struct {
	mu    sync.RWMutex
	conns map[string]*presenceEntry
	seq   uint64
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{conns: make(map[string]*presenceEntry)}
}

// Register records a new connection. It fails with ErrDuplicateConnection if
// connID is already registered.
func (p *PresenceTracker) Register(connID string, username domain.ClaimedIdentity, channel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.conns[connID]; ok {
		return ErrDuplicateConnection
	}
	p.seq++
	p.conns[connID] = &presenceEntry{username: username, channel: channel, seq: p.seq}
	return nil
}

// Move switches the connection to newChannel and returns the channel it
// left. Fails with ErrUnknownConnection if connID is not registered.
func (p *PresenceTracker) Move(connID, newChannel string) (old string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.conns[connID]
	if !ok {
		return "", ErrUnknownConnection
	}
	old = e.channel
	e.channel = newChannel
	return old, nil
}

// Unregister removes the connection entirely and returns its last-known
// username and channel for leave-notice purposes. The second call for the
// same connID reports ok=false and is a no-op.
func (p *PresenceTracker) Unregister(connID string) (username domain.ClaimedIdentity, channel string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, found := p.conns[connID]
	if !found {
		return "", "", false
	}
	delete(p.conns, connID)
	return e.username, e.channel, true
}

// Lookup returns the connection's username and current channel.
func (p *PresenceTracker) Lookup(connID string) (username domain.ClaimedIdentity, channel string, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, found := p.conns[connID]
	if !found {
		return "", "", false
	}
	return e.username, e.channel, true
}

// UsernamesIn returns the usernames currently in channel, ordered by join
// time. This is the "online users" presence snapshot.
func (p *PresenceTracker) UsernamesIn(channel string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]*presenceEntry, 0)
	for _, e := range p.conns {
		if e.channel == channel {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, string(e.username))
	}
	return out
}

// ConnectionsIn returns the connection IDs currently in channel, ordered by
// join time.
func (p *PresenceTracker) ConnectionsIn(channel string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	type pair struct {
		id  string
		seq uint64
	}
	pairs := make([]pair, 0)
	for id, e := range p.conns {
		if e.channel == channel {
			pairs = append(pairs, pair{id: id, seq: e.seq})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].seq < pairs[j].seq })

	out := make([]string, 0, len(pairs))
	for _, pr := range pairs {
		out = append(out, pr.id)
	}
	return out
}

// CountIn returns the number of connections currently in channel.
func (p *PresenceTracker) CountIn(channel string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := 0
	for _, e := range p.conns {
		if e.channel == channel {
			n++
		}
	}
	return n
}
