package broadcast

import (
	"context"
	"log"

	"github.com/go-monolith/mono"
)

// Module owns the transport fan-out hub.
type Module struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module.
func NewModule() *Module {
	return &Module{hub: NewHub()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Hub returns the fan-out hub for the chat and wsserver modules to use.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Start marks the hub ready.
func (m *Module) Start(_ context.Context) error {
	log.Println("[broadcast] Module started")
	return nil
}

// Stop drops all connected clients.
func (m *Module) Stop(_ context.Context) error {
	count := m.hub.ClientCount()
	m.hub.Close()
	log.Printf("[broadcast] Module stopped - %d clients were connected", count)
	return nil
}

// Health reports the connected client count.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}
