// Package streamadapter implements the Stream Adapter (C8): an ordinary
// broker subscriber that forwards every processed message to a downstream
// long-lived streaming sink (a WebSocket gateway) as a JSON envelope, with
// backpressure decided by the sink rather than the broker.
package streamadapter

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"visionguard/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans every broadcast out to every connected sink client. Unlike the
// teacher's hub, there is no channel subscription or tenant isolation to
// apply: every connected client is a full replica of the event stream, and
// a slow client is dropped rather than allowed to backpressure the others.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	logger     logging.Logger
	mu         sync.RWMutex
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs an idle hub; call Run to start its dispatch loop.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBufferSize),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

// Run drives the hub's register/unregister/broadcast loop. Blocks; call in
// its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logging.Fields{"client_count": count}).Info("stream sink connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.WithFields(logging.Fields{"client_count": count}).Info("stream sink disconnected")

		case message := <-h.broadcast:
			h.dispatch(message)
		}
	}
}

// dispatch runs on the hub's own goroutine (called from Run's select loop),
// so a full client send-buffer is handled by deleting the client directly
// under the write lock rather than round-tripping through h.unregister —
// that channel has no other reader while dispatch is on the stack, and
// sending to it here would deadlock the hub against itself.
func (h *Hub) dispatch(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Broadcast marshals v to JSON and enqueues it for every connected client.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal stream envelope")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("stream hub broadcast buffer full, dropping envelope")
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it as a stream sink client. No authentication is applied here: the
// control-plane API (where auth would live) is out of scope for this core.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("failed to upgrade stream sink connection")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump exists only to detect peer disconnects and keep the pong
// deadline alive; the stream sink never sends anything meaningful upstream.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
