package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/NineOwlsDevelopment/moodring-server-sub000/internal/bus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // prediction-market feed is public read-only data
	},
}

// Client is one connected websocket subscriber.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans bus.Message envelopes out to every connected websocket client,
// grounded on the teacher's Hub/Client pump pair but subscribing to
// internal/bus instead of a raw broadcast channel fed by call sites
// directly — every engine publishes once, to the bus, and the hub is just
// one more subscriber.
type Hub struct {
	bus        *bus.Bus
	log        *zap.Logger
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a Hub that will subscribe to b once Run starts.
func NewHub(b *bus.Bus, log *zap.Logger) *Hub {
	return &Hub{
		bus:        b,
		log:        log,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run subscribes to the bus and fans every message out to connected
// clients until the bus unsubscribe fires (never, in normal operation —
// the process exits first).
func (h *Hub) Run() {
	msgs, unsub := h.bus.Subscribe()
	defer unsub()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.Error("failed to marshal bus message", zap.Error(err))
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// handleWebSocket upgrades the connection and registers a new Client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{hub: s.wsHub, conn: conn, send: make(chan []byte, 256)}
	s.wsHub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump only watches for client disconnect; the feed is one-directional
// (subscribers never send commands over the socket).
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
