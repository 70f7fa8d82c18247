package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/team-portal-chat/domain/chat"
	"github.com/example/team-portal-chat/events"
)

// Module wires the chat core into the application framework and publishes
// domain events onto the EventBus after each authoritative push.
type Module struct {
	service  *Service
	eventBus mono.EventBus
	logger   types.Logger
}

func timeNow() time.Time { return time.Now().UTC() }

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the chat module. The fixed channel set is created here
// and never changes afterwards. profiles may be nil.
func NewModule(bcast Broadcaster, profiles ProfileSource, historyLimit int, logger types.Logger) *Module {
	m := &Module{logger: logger}
	store := NewChannelStore(DefaultChannels, historyLimit)
	presence := NewPresenceTracker()
	m.service = NewService(store, presence, bcast, profiles, m)
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// Service returns the lifecycle manager / message router.
func (m *Module) Service() *Service {
	return m.service
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.ChannelSwitchedV1.ToBase(),
	}
}

// Start logs the ready channel set; the registry itself was built in
// NewModule so read-only collaborators can be wired before the framework
// starts.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Chat module started", "channels", m.service.Store().Names())
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped")
	return nil
}

// Health reports per-channel membership.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	details := make(map[string]any)
	for _, name := range m.service.Store().Names() {
		details[name] = m.service.Presence().CountIn(name)
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

// EventSink implementation: publish failures are logged and dropped; the
// authoritative push has already happened and must not be rolled back.

// MessageSent publishes a MessageSent event.
func (m *Module) MessageSent(msg domain.Message) {
	if m.eventBus == nil {
		return
	}
	event := events.MessageSentEvent{Message: msg}
	if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish MessageSent event", "error", err)
	}
}

// UserJoined publishes a UserJoined event.
func (m *Module) UserJoined(channel, username string) {
	if m.eventBus == nil {
		return
	}
	event := events.UserJoinedEvent{Channel: channel, Username: username, Timestamp: timeNow()}
	if err := events.UserJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish UserJoined event", "error", err)
	}
}

// UserLeft publishes a UserLeft event.
func (m *Module) UserLeft(channel, username string) {
	if m.eventBus == nil {
		return
	}
	event := events.UserLeftEvent{Channel: channel, Username: username, Timestamp: timeNow()}
	if err := events.UserLeftV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish UserLeft event", "error", err)
	}
}

// ChannelSwitched publishes a ChannelSwitched event.
func (m *Module) ChannelSwitched(username, from, to string) {
	if m.eventBus == nil {
		return
	}
	event := events.ChannelSwitchedEvent{Username: username, From: from, To: to, Timestamp: timeNow()}
	if err := events.ChannelSwitchedV1.Publish(m.eventBus, event, nil); err != nil {
		slog.Warn("Failed to publish ChannelSwitched event", "error", err)
	}
}
