package broadcast

import (
	"encoding/json"
	"log"
	"sync"
)

// sendBuffer is the per-connection outbound queue depth. A client that
// cannot drain this many frames is considered stuck and is dropped rather
// than allowed to stall the fan-out.
const sendBuffer = 256

// Conn is the write side of one transport connection. Satisfied by
// *websocket.Conn from gofiber/contrib/websocket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage mirrors websocket.TextMessage; declared here so the hub does
// not depend on a concrete websocket package.
const textMessage = 1

// Envelope is the server-to-client wire frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is one registered connection: its identity, write side, and
// outbound queue drained by a dedicated write pump.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	once sync.Once
}

// close shuts the send queue exactly once; the write pump then closes the
// underlying connection.
func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks live connections and delivers frames to them. Each client has
// a buffered send channel drained by one goroutine, so frames pushed to a
// given connection are written in push order, which is the transport's only
// ordering obligation.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Register adds a connection and starts its write pump. The returned
// Client is owned by the hub; callers interact via Push/Unregister.
func (h *Hub) Register(connID string, conn Conn) *Client {
	client := &Client{ID: connID, conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		_ = conn.Close()
		return client
	}
	h.clients[connID] = client
	h.mu.Unlock()

	go client.writePump()
	log.Printf("[hub] client %s registered", connID)
	return client
}

// Unregister removes the connection and stops its write pump. Safe to call
// more than once.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.mu.Unlock()

	if ok {
		client.close()
		log.Printf("[hub] client %s unregistered", connID)
	}
}

// Push enqueues one event frame for connID. Unknown connections are
// ignored (the caller may race with a disconnect). If the client's queue is
// full it is dropped: its connection is closed, which surfaces as a read
// error in the connection's dispatch loop and runs the normal disconnect
// path exactly once.
func (h *Hub) Push(connID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[hub] marshal %s payload: %v", event, err)
		return
	}
	frame, err := json.Marshal(Envelope{Type: event, Payload: data})
	if err != nil {
		log.Printf("[hub] marshal %s envelope: %v", event, err)
		return
	}

	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- frame:
	default:
		log.Printf("[hub] dropping slow client %s", connID)
		h.Unregister(connID)
	}
}

// Close drops every client. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.closed = true
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump drains the send queue onto the connection. It exits when the
// queue is closed or a write fails, closing the connection either way.
func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.send {
		if err := c.conn.WriteMessage(textMessage, frame); err != nil {
			log.Printf("[hub] write to %s: %v", c.ID, err)
			return
		}
	}
}
