package activity

import (
	"context"
	"testing"

	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/team-portal-chat/domain/chat"
	"github.com/example/team-portal-chat/events"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func TestModule_Name(t *testing.T) {
	m := NewModule(&mockLogger{})

	if name := m.Name(); name != "activity" {
		t.Errorf("Name() = %q, want 'activity'", name)
	}
}

func TestModule_CountsEvents(t *testing.T) {
	m := NewModule(&mockLogger{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.handleMessageSent(ctx, events.MessageSentEvent{
			Message: domain.Message{Channel: "general", Type: domain.MessageUser},
		}, nil); err != nil {
			t.Fatalf("handleMessageSent() error = %v", err)
		}
	}
	if err := m.handleUserJoined(ctx, events.UserJoinedEvent{Channel: "general", Username: "morgan"}, nil); err != nil {
		t.Fatalf("handleUserJoined() error = %v", err)
	}
	if err := m.handleUserLeft(ctx, events.UserLeftEvent{Channel: "general", Username: "morgan"}, nil); err != nil {
		t.Fatalf("handleUserLeft() error = %v", err)
	}
	if err := m.handleChannelSwitched(ctx, events.ChannelSwitchedEvent{Username: "morgan", From: "general", To: "ops"}, nil); err != nil {
		t.Fatalf("handleChannelSwitched() error = %v", err)
	}

	health := m.Health(ctx)
	if !health.Healthy {
		t.Error("Health() Healthy = false, want true")
	}
	want := map[string]uint64{"messages": 3, "joins": 1, "leaves": 1, "switches": 1}
	for key, wantCount := range want {
		got, ok := health.Details[key].(uint64)
		if !ok || got != wantCount {
			t.Errorf("Health() Details[%q] = %v, want %d", key, health.Details[key], wantCount)
		}
	}
}

func TestModule_StartStop(t *testing.T) {
	m := NewModule(&mockLogger{})
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Errorf("Start() error = %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
