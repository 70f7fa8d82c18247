package chat

import (
	"errors"
	"fmt"
	"testing"

	domain "github.com/example/team-portal-chat/domain/chat"
)

func TestChannelStore_Exists(t *testing.T) {
	s := NewChannelStore(DefaultChannels, 10)

	tests := []struct {
		name string
		want bool
	}{
		{"general", true},
		{"ops", true},
		{"intel", true},
		{"ai-lab", true},
		{"random", false},
		{"", false},
		{"General", false}, // names are case-sensitive
	}

	for _, tt := range tests {
		if got := s.Exists(tt.name); got != tt.want {
			t.Errorf("Exists(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestChannelStore_NamesKeepDeclarationOrder(t *testing.T) {
	s := NewChannelStore([]string{"zeta", "alpha", "mid"}, 10)

	got := s.Names()
	want := []string{"zeta", "alpha", "mid"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChannelStore_EmptyHistoryOnFirstRead(t *testing.T) {
	s := NewChannelStore(DefaultChannels, 10)

	history, err := s.History("general")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("History() = %d messages, want 0", len(history))
	}
}

func TestChannelStore_AppendAndHistoryOrder(t *testing.T) {
	s := NewChannelStore([]string{"general"}, 10)

	for i := 0; i < 3; i++ {
		msg := domain.Message{ID: fmt.Sprintf("m%d", i), Channel: "general", Content: fmt.Sprintf("msg %d", i)}
		if err := s.Append("general", msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	history, err := s.History("general")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() = %d messages, want 3", len(history))
	}
	for i, msg := range history {
		if want := fmt.Sprintf("m%d", i); msg.ID != want {
			t.Errorf("History()[%d].ID = %q, want %q", i, msg.ID, want)
		}
	}
}

func TestChannelStore_TrimsOldestBeyondRetention(t *testing.T) {
	s := NewChannelStore([]string{"general"}, 3)

	for i := 0; i < 5; i++ {
		msg := domain.Message{ID: fmt.Sprintf("m%d", i), Channel: "general"}
		if err := s.Append("general", msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	history, _ := s.History("general")
	if len(history) != 3 {
		t.Fatalf("History() = %d messages, want 3", len(history))
	}
	// Oldest two (m0, m1) are gone.
	for i, wantID := range []string{"m2", "m3", "m4"} {
		if history[i].ID != wantID {
			t.Errorf("History()[%d].ID = %q, want %q", i, history[i].ID, wantID)
		}
	}
}

func TestChannelStore_UnknownChannel(t *testing.T) {
	s := NewChannelStore(DefaultChannels, 10)

	if err := s.Append("nope", domain.Message{ID: "x"}); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("Append(unknown) error = %v, want ErrUnknownChannel", err)
	}
	if _, err := s.History("nope"); !errors.Is(err, ErrUnknownChannel) {
		t.Errorf("History(unknown) error = %v, want ErrUnknownChannel", err)
	}
}

func TestChannelStore_ChannelsAreIsolated(t *testing.T) {
	s := NewChannelStore([]string{"general", "ops"}, 10)

	if err := s.Append("general", domain.Message{ID: "g1", Channel: "general"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	opsHistory, _ := s.History("ops")
	if len(opsHistory) != 0 {
		t.Errorf("History(ops) = %d messages, want 0", len(opsHistory))
	}
}

func TestChannelStore_HistoryReturnsCopy(t *testing.T) {
	s := NewChannelStore([]string{"general"}, 10)
	_ = s.Append("general", domain.Message{ID: "m0", Content: "original"})

	history, _ := s.History("general")
	history[0].Content = "mutated"

	again, _ := s.History("general")
	if again[0].Content != "original" {
		t.Errorf("History() shares backing storage with the store")
	}
}
