// Package activity consumes chat events off the EventBus and keeps running
// counters for ops visibility. It is purely observational: nothing the
// clients see depends on it.
package activity

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/team-portal-chat/events"
)

// Module counts chat activity.
type Module struct {
	messages uint64
	joins    uint64
	leaves   uint64
	switches uint64
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{logger: logger}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop logs the final totals.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped",
		"messages", atomic.LoadUint64(&m.messages),
		"joins", atomic.LoadUint64(&m.joins),
		"leaves", atomic.LoadUint64(&m.leaves),
		"switches", atomic.LoadUint64(&m.switches))
	return nil
}

// Health reports the running totals.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"messages": atomic.LoadUint64(&m.messages),
			"joins":    atomic.LoadUint64(&m.joins),
			"leaves":   atomic.LoadUint64(&m.leaves),
			"switches": atomic.LoadUint64(&m.switches),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ChannelSwitchedV1, m.handleChannelSwitched, m,
	); err != nil {
		return fmt.Errorf("failed to register ChannelSwitched consumer: %w", err)
	}

	m.logger.Info("Registered activity event consumers")
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	atomic.AddUint64(&m.messages, 1)
	m.logger.Debug("Message recorded",
		"channel", event.Message.Channel,
		"type", event.Message.Type)
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	atomic.AddUint64(&m.joins, 1)
	m.logger.Debug("Join recorded", "channel", event.Channel, "username", event.Username)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	atomic.AddUint64(&m.leaves, 1)
	m.logger.Debug("Leave recorded", "channel", event.Channel, "username", event.Username)
	return nil
}

func (m *Module) handleChannelSwitched(_ context.Context, event events.ChannelSwitchedEvent, _ *mono.Msg) error {
	atomic.AddUint64(&m.switches, 1)
	m.logger.Debug("Switch recorded", "username", event.Username, "from", event.From, "to", event.To)
	return nil
}
