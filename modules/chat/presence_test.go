package chat

import (
	"errors"
	"testing"
)

func TestPresenceTracker_RegisterAndLookup(t *testing.T) {
	p := NewPresenceTracker()

	if err := p.Register("c1", "morgan", "general"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	username, channel, ok := p.Lookup("c1")
	if !ok {
		t.Fatal("Lookup() ok = false, want true")
	}
	if username != "morgan" || channel != "general" {
		t.Errorf("Lookup() = (%q, %q), want (morgan, general)", username, channel)
	}
}

func TestPresenceTracker_DuplicateRegister(t *testing.T) {
	p := NewPresenceTracker()
	_ = p.Register("c1", "morgan", "general")

	err := p.Register("c1", "riley", "ops")
	if !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("Register(duplicate) error = %v, want ErrDuplicateConnection", err)
	}

	// Original registration is untouched.
	username, channel, _ := p.Lookup("c1")
	if username != "morgan" || channel != "general" {
		t.Errorf("Lookup() after duplicate = (%q, %q), want (morgan, general)", username, channel)
	}
}

func TestPresenceTracker_MoveIsExclusive(t *testing.T) {
	p := NewPresenceTracker()
	_ = p.Register("c1", "morgan", "general")

	old, err := p.Move("c1", "ops")
	if err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if old != "general" {
		t.Errorf("Move() old = %q, want general", old)
	}

	// Member of exactly one channel at a time.
	if n := p.CountIn("general"); n != 0 {
		t.Errorf("CountIn(general) = %d, want 0", n)
	}
	if n := p.CountIn("ops"); n != 1 {
		t.Errorf("CountIn(ops) = %d, want 1", n)
	}
}

func TestPresenceTracker_MoveUnknownConnection(t *testing.T) {
	p := NewPresenceTracker()

	if _, err := p.Move("ghost", "ops"); !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("Move(unknown) error = %v, want ErrUnknownConnection", err)
	}
}

func TestPresenceTracker_UnregisterIsIdempotent(t *testing.T) {
	p := NewPresenceTracker()
	_ = p.Register("c1", "morgan", "general")

	username, channel, ok := p.Unregister("c1")
	if !ok || username != "morgan" || channel != "general" {
		t.Errorf("Unregister() = (%q, %q, %v), want (morgan, general, true)", username, channel, ok)
	}

	if _, _, ok := p.Unregister("c1"); ok {
		t.Error("second Unregister() ok = true, want false")
	}
	if _, _, ok := p.Lookup("c1"); ok {
		t.Error("Lookup() after Unregister ok = true, want false")
	}
}

func TestPresenceTracker_UsernamesInJoinOrder(t *testing.T) {
	p := NewPresenceTracker()
	_ = p.Register("c1", "morgan", "general")
	_ = p.Register("c2", "riley", "general")
	_ = p.Register("c3", "casey", "ops")
	_ = p.Register("c4", "alex", "general")

	got := p.UsernamesIn("general")
	want := []string{"morgan", "riley", "alex"}
	if len(got) != len(want) {
		t.Fatalf("UsernamesIn(general) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("UsernamesIn(general)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPresenceTracker_SameUsernameTwice(t *testing.T) {
	// Usernames are claimed, not authenticated: two connections may claim
	// the same name and both count as members.
	p := NewPresenceTracker()
	_ = p.Register("c1", "morgan", "general")
	_ = p.Register("c2", "morgan", "general")

	if n := p.CountIn("general"); n != 2 {
		t.Errorf("CountIn(general) = %d, want 2", n)
	}
	got := p.UsernamesIn("general")
	if len(got) != 2 || got[0] != "morgan" || got[1] != "morgan" {
		t.Errorf("UsernamesIn(general) = %v, want [morgan morgan]", got)
	}
}

func TestPresenceTracker_ConnectionsIn(t *testing.T) {
	p := NewPresenceTracker()
	_ = p.Register("c1", "morgan", "general")
	_ = p.Register("c2", "riley", "ops")
	_ = p.Register("c3", "casey", "general")

	got := p.ConnectionsIn("general")
	want := []string{"c1", "c3"}
	if len(got) != len(want) {
		t.Fatalf("ConnectionsIn(general) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ConnectionsIn(general)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
