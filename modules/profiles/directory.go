// Package profiles decorates chat identities with display metadata from the
// portal's identity store. The chat core treats the returned values as
// opaque presentation data and never blocks on a lookup while routing
// messages: the hot path reads only an in-process warm cache, and cache
// warming happens in the background with a bounded context.
package profiles

import (
	"context"
	"errors"
)

// Profile is the display metadata attached to a username. Opaque to the
// chat core.
type Profile struct {
	Title string `json:"title"`
	Tier  string `json:"tier,omitempty"`
}

// ErrNotFound reports that the identity store has no profile for a
// username. Not an error condition for the chat core; the user simply gets
// no decoration.
var ErrNotFound = errors.New("profile not found")

// Directory is the upstream identity/profile store.
type Directory interface {
	Lookup(ctx context.Context, username string) (Profile, error)
}

// StaticDirectory serves profiles from a fixed map. Used as the default
// when no upstream store is configured, and in tests.
type StaticDirectory struct {
	profiles map[string]Profile
}

// NewStaticDirectory creates a directory over the given map. A nil map is
// an empty directory.
func NewStaticDirectory(profiles map[string]Profile) *StaticDirectory {
	if profiles == nil {
		profiles = make(map[string]Profile)
	}
	return &StaticDirectory{profiles: profiles}
}

// Lookup returns the profile for username or ErrNotFound.
func (d *StaticDirectory) Lookup(_ context.Context, username string) (Profile, error) {
	p, ok := d.profiles[username]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}
