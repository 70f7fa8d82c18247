package wsserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"

	domain "github.com/example/team-portal-chat/domain/chat"
	"github.com/example/team-portal-chat/modules/broadcast"
	"github.com/example/team-portal-chat/modules/chat"
)

// Flood-control constants
const (
	messagesPerSecond = 10
	burstSize         = 20

	connIDLength = 12
	historyCap   = 100
)

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}

// Handlers contains the WebSocket dispatch loop and the read-only REST
// handlers.
type Handlers struct {
	service   *chat.Service
	hub       *broadcast.Hub
	newConnID func() string
	logger    *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(service *chat.Service, hub *broadcast.Hub) *Handlers {
	gen, err := nanoid.Standard(connIDLength)
	if err != nil {
		// Only reachable with an out-of-range length constant.
		gen = uuid.NewString
	}
	return &Handlers{
		service:   service,
		hub:       hub,
		newConnID: gen,
		logger:    slog.Default(),
	}
}

// HandleWebSocket runs one connection's dispatch loop. Every inbound event
// is handled to completion before the next is read, so a single connection
// cannot interleave its own operations. The deferred disconnect path runs
// exactly once per connection, covering both clean closes and transport
// drops.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := h.newConnID()
	h.hub.Register(connID, c)
	limiter := newRateLimiter(burstSize, messagesPerSecond)

	defer func() {
		h.service.Disconnect(connID)
		h.hub.Unregister(connID)
	}()

	h.logger.Info("WebSocket connected", "connID", connID)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", "connID", connID, "error", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			h.sendError(connID, CodeBadRequest, "invalid message format")
			continue
		}

		h.handleMessage(connID, limiter, msg)
	}

	h.logger.Info("WebSocket disconnected", "connID", connID)
}

// handleMessage dispatches one inbound event.
func (h *Handlers) handleMessage(connID string, limiter *rateLimiter, msg ClientMessage) {
	switch msg.Type {
	case TypeJoin:
		h.handleJoin(connID, msg.Payload)
	case TypeSwitchChannel:
		h.handleSwitch(connID, msg.Payload)
	case TypeSendMessage:
		h.handleSend(connID, limiter, msg.Payload)
	default:
		h.sendError(connID, CodeBadRequest, "unknown message type: "+msg.Type)
	}
}

func (h *Handlers) handleJoin(connID string, payload json.RawMessage) {
	var req JoinPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(connID, CodeBadRequest, "invalid join payload")
		return
	}
	if req.Username == "" || req.Channel == "" {
		h.sendError(connID, CodeBadRequest, "username and channel are required")
		return
	}

	err := h.service.Join(connID, domain.ClaimedIdentity(req.Username), req.Channel)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrDuplicateConnection):
		// Protocol misuse; not a user-visible failure.
		h.logger.Warn("Duplicate join ignored", "connID", connID)
	default:
		h.sendError(connID, errorCode(err), err.Error())
	}
}

func (h *Handlers) handleSwitch(connID string, payload json.RawMessage) {
	var req SwitchPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(connID, CodeBadRequest, "invalid switch payload")
		return
	}
	if req.Channel == "" {
		h.sendError(connID, CodeBadRequest, "channel is required")
		return
	}

	err := h.service.Switch(connID, req.Channel)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrUnknownConnection):
		h.logger.Warn("Switch before join ignored", "connID", connID)
		h.sendError(connID, CodeNotJoined, "join a channel first")
	default:
		h.sendError(connID, errorCode(err), err.Error())
	}
}

func (h *Handlers) handleSend(connID string, limiter *rateLimiter, payload json.RawMessage) {
	if !limiter.allow() {
		h.sendError(connID, CodeRateLimited, "rate limit exceeded, slow down")
		return
	}

	var req SendPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		h.sendError(connID, CodeBadRequest, "invalid message payload")
		return
	}

	if _, err := h.service.Submit(connID, req.Content); err != nil {
		h.sendError(connID, errorCode(err), err.Error())
	}
}

// sendError reports a failed action to the originating connection only.
func (h *Handlers) sendError(connID, code, message string) {
	h.hub.Push(connID, "error", ErrorPayload{Code: code, Message: message})
}

// errorCode maps chat domain errors onto wire error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, chat.ErrUnknownChannel):
		return CodeUnknownChannel
	case errors.Is(err, chat.ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, chat.ErrEmptyContent):
		return CodeEmptyContent
	case errors.Is(err, chat.ErrContentTooLong):
		return CodeContentTooLong
	default:
		return CodeBadRequest
	}
}

// REST Handlers

// ListChannels handles GET /api/v1/channels.
func (h *Handlers) ListChannels(c *fiber.Ctx) error {
	names := h.service.Store().Names()
	channels := make([]domain.Channel, 0, len(names))
	for _, name := range names {
		channels = append(channels, domain.Channel{
			Name:        name,
			MemberCount: h.service.Presence().CountIn(name),
		})
	}
	return c.JSON(fiber.Map{
		"channels": channels,
		"total":    len(channels),
	})
}

// GetChannelHistory handles GET /api/v1/channels/:name/history.
func (h *Handlers) GetChannelHistory(c *fiber.Ctx) error {
	name := c.Params("name")
	history, err := h.service.Store().History(name)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "channel not found",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	return c.JSON(fiber.Map{
		"channel":  name,
		"messages": history,
		"total":    len(history),
	})
}

// HealthCheck handles GET /health.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "team-portal-chat",
	})
}
