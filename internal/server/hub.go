package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/text/language"

	"github.com/longkey1/finanzas/internal/finanzas"
	"github.com/longkey1/finanzas/internal/finanzas/chat"
	"github.com/longkey1/finanzas/internal/voice"
)

// Outbound event types.
const (
	EventMessage     = "message"
	EventTyping      = "typing"
	EventToast       = "toast"
	EventCleared     = "cleared"
	EventInput       = "input"
	EventListening   = "listening"
	EventRecognition = "recognition"
	EventError       = "error"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

// Event is one message pushed to connected browsers.
type Event struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans chat events out to every connected browser. It implements
// chat.Presenter and, while at least one browser is connected,
// voice.Engine: recognition runs in the browser and reports back.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

var (
	_ chat.Presenter = (*Hub)(nil)
	_ voice.Engine   = (*Hub)(nil)
)

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[*client]struct{}),
	}
}

// Len returns the number of connected browsers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends an event to every client. Slow clients are dropped.
func (h *Hub) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		h.logger.Error("failed to encode event", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Render implements chat.Presenter.
func (h *Hub) Render(m finanzas.Message) {
	h.Broadcast(EventMessage, m)
}

// Typing implements chat.Presenter.
func (h *Hub) Typing(on bool) {
	h.Broadcast(EventTyping, map[string]bool{"typing": on})
}

// Toast implements chat.Presenter.
func (h *Hub) Toast(text string, kind chat.ToastKind) {
	h.Broadcast(EventToast, map[string]string{"text": text, "kind": string(kind)})
}

// Cleared implements chat.Presenter.
func (h *Hub) Cleared() {
	h.Broadcast(EventCleared, nil)
}

// Start implements voice.Engine by asking the browsers to start listening.
func (h *Hub) Start(locale language.Tag) error {
	if h.Len() == 0 {
		return voice.ErrRecognitionUnsupported
	}
	h.Broadcast(EventRecognition, map[string]string{"action": "start", "locale": locale.String()})
	return nil
}

// Stop implements voice.Engine.
func (h *Hub) Stop() error {
	if h.Len() == 0 {
		return voice.ErrRecognitionUnsupported
	}
	h.Broadcast(EventRecognition, map[string]string{"action": "stop"})
	return nil
}

func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// writePump owns all writes to the connection.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendTo delivers an event to a single client.
func (h *Hub) sendTo(c *client, eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}
