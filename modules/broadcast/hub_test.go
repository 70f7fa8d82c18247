package broadcast

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeConn records written frames and signals each write.
type fakeConn struct {
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	wrote   chan struct{}
	failAll bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{wrote: make(chan struct{}, 1024)}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll {
		return fmt.Errorf("write on broken conn")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	c.wrote <- struct{}{}
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) frame(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[i]
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// waitFrames blocks until the conn has received n frames or times out.
func waitFrames(t *testing.T, c *fakeConn, n int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for c.frameCount() < n {
		select {
		case <-c.wrote:
		case <-deadline:
			t.Fatalf("timed out waiting for %d frames, have %d", n, c.frameCount())
		}
	}
}

func TestHub_PushDeliversEnvelope(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	conn := newFakeConn()
	hub.Register("c1", conn)

	hub.Push("c1", "new_message", map[string]string{"content": "hello"})
	waitFrames(t, conn, 1)

	var env Envelope
	if err := json.Unmarshal(conn.frame(0), &env); err != nil {
		t.Fatalf("frame is not a valid envelope: %v", err)
	}
	if env.Type != "new_message" {
		t.Errorf("envelope Type = %q, want new_message", env.Type)
	}
	var payload map[string]string
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if payload["content"] != "hello" {
		t.Errorf("payload content = %q, want hello", payload["content"])
	}
}

func TestHub_PerClientOrderMatchesPushOrder(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	conn := newFakeConn()
	hub.Register("c1", conn)

	const n = 50
	for i := 0; i < n; i++ {
		hub.Push("c1", "new_message", i)
	}
	waitFrames(t, conn, n)

	for i := 0; i < n; i++ {
		var env Envelope
		if err := json.Unmarshal(conn.frame(i), &env); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		var got int
		if err := json.Unmarshal(env.Payload, &got); err != nil {
			t.Fatalf("frame %d payload: %v", i, err)
		}
		if got != i {
			t.Fatalf("frame %d payload = %d, want %d (out of order)", i, got, i)
		}
	}
}

func TestHub_PushToUnknownConnectionIsIgnored(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// Must not panic or block.
	hub.Push("ghost", "new_message", "hello")
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	conn := newFakeConn()
	hub.Register("c1", conn)

	hub.Unregister("c1")
	hub.Unregister("c1")

	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}
}

func TestHub_UnregisterClosesConnection(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	conn := newFakeConn()
	hub.Register("c1", conn)

	hub.Unregister("c1")

	deadline := time.After(2 * time.Second)
	for !conn.isClosed() {
		select {
		case <-deadline:
			t.Fatal("connection not closed after Unregister")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// A conn whose writes fail immediately stops the write pump, so the
	// send buffer fills up.
	conn := newFakeConn()
	conn.failAll = true
	hub.Register("c1", conn)

	// Overfill the queue. The overflow push unregisters the client.
	for i := 0; i < sendBuffer+10; i++ {
		hub.Push("c1", "new_message", i)
	}

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatalf("slow client still registered, ClientCount() = %d", hub.ClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_RegisterAfterCloseRejects(t *testing.T) {
	hub := NewHub()
	hub.Close()

	conn := newFakeConn()
	hub.Register("c1", conn)

	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() after Close = %d, want 0", n)
	}
	if !conn.isClosed() {
		t.Error("connection registered after Close was not closed")
	}
}

func TestHub_CloseDropsAllClients(t *testing.T) {
	hub := NewHub()
	conns := make([]*fakeConn, 3)
	for i := range conns {
		conns[i] = newFakeConn()
		hub.Register(fmt.Sprintf("c%d", i), conns[i])
	}

	hub.Close()

	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}
	deadline := time.After(2 * time.Second)
	for _, conn := range conns {
		for !conn.isClosed() {
			select {
			case <-deadline:
				t.Fatal("client connection not closed after hub Close")
			case <-time.After(5 * time.Millisecond):
			}
		}
	}
}
