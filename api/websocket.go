package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/abcfe/hive-wallet/common/logger"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// nil CheckOrigin: same-origin pages and non-browser clients only
}

// WSEventType event type
type WSEventType string

const (
	EventConnected       WSEventType = "connected"
	EventBroadcastDone   WSEventType = "broadcast_done"
	EventBroadcastFailed WSEventType = "broadcast_failed"
	EventDetected        WSEventType = "derivation_detected"
)

// WSMessage WebSocket message structure
type WSMessage struct {
	Event     WSEventType `json:"event"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// WSHub fans wallet events out to every connected client
type WSHub struct {
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
	quit       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// WSClient WebSocket client
type WSClient struct {
	hub  *WSHub
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates new Hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 64),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		quit:       make(chan struct{}),
	}
}

// Run runs the Hub until Stop
func (h *WSHub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug("WebSocket client connected. Total:", h.GetClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Debug("WebSocket client disconnected. Total:", h.GetClientCount())

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				logger.Error("Failed to marshal WebSocket message:", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *WSHub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Publish queues an event. It never blocks; events are dropped when the
// queue is full.
func (h *WSHub) Publish(event WSEventType, data interface{}) {
	msg := WSMessage{Event: event, Timestamp: time.Now().Unix(), Data: data}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("WebSocket event queue full, dropping ", event)
	}
}

// BroadcastDone publishes a successful broadcast for username
func (h *WSHub) BroadcastDone(username string, result interface{}) {
	h.Publish(EventBroadcastDone, map[string]interface{}{
		"username": username,
		"result":   result,
	})
}

// BroadcastFailed publishes a failed broadcast with its error kind
func (h *WSHub) BroadcastFailed(username, kind string) {
	h.Publish(EventBroadcastFailed, map[string]interface{}{
		"username": username,
		"kind":     kind,
	})
}

// GetClientCount returns connected client count
func (h *WSHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket WebSocket connection handler
func HandleWebSocket(hub *WSHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error:", err)
			return
		}

		client := &WSClient{
			hub:  hub,
			conn: conn,
			send: make(chan []byte, 256),
		}

		welcome, _ := json.Marshal(WSMessage{
			Event:     EventConnected,
			Timestamp: time.Now().Unix(),
			Data:      map[string]interface{}{"message": "Connected to hive wallet events"},
		})
		client.send <- welcome

		select {
		case hub.register <- client:
		case <-hub.quit:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// writePump sends message to client
func (c *WSClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				logger.Error("WebSocket write error:", err)
			} else {
				logger.Debug("WebSocket write closed:", err)
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the client; incoming messages are ignored
func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			// 1000, 1001, 1005 and 1006 are ordinary browser closes
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
				websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket read error:", err)
			} else {
				logger.Debug("WebSocket client disconnected:", err)
			}
			return
		}
	}
}
