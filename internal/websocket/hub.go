package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/avpv/volleyrank-sub002/internal/optimizer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now (should be restricted in production)
	},
}

// Message is the envelope every hub payload travels in.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client represents one WebSocket connection subscribed to a request ID.
type Client struct {
	RequestID string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
}

// Hub maintains active WebSocket connections grouped by optimization
// request ID and relays engine progress events to them.
type Hub struct {
	clients        map[*Client]bool
	requestClients map[string][]*Client
	broadcast      chan []byte
	register       chan *Client
	unregister     chan *Client
	logger         *logrus.Logger
	mutex          sync.RWMutex
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:        make(map[*Client]bool),
		requestClients: make(map[string][]*Client),
		broadcast:      make(chan []byte, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		logger:         logger,
	}
}

// Run handles client registration, unregistration and broadcast fan-out.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.requestClients[client.RequestID] = append(h.requestClients[client.RequestID], client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"request_id":    client.RequestID,
				"total_clients": len(h.clients),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			h.dropClient(client)
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"request_id":    client.RequestID,
				"total_clients": len(h.clients),
			}).Info("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					h.dropClient(client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// dropClient removes a client from both maps. Callers hold the write lock.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)

	subscribers := h.requestClients[client.RequestID]
	for i, c := range subscribers {
		if c == client {
			h.requestClients[client.RequestID] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(h.requestClients[client.RequestID]) == 0 {
		delete(h.requestClients, client.RequestID)
	}
}

// HandleWebSocket upgrades the connection and subscribes it to the request
// ID from the URL.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	requestID := c.Param("request_id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing request ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		RequestID: requestID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		Hub:       h,
	}

	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}

// Publish implements the engine's progress sink. Events fan out to every
// connection watching the request.
func (h *Hub) Publish(event optimizer.ProgressEvent) {
	h.BroadcastToRequest(event.RequestID, Message{Type: "progress", Data: event})
}

// BroadcastToRequest sends a message to all connections watching a request.
func (h *Hub) BroadcastToRequest(requestID string, message interface{}) {
	h.mutex.RLock()
	n := len(h.requestClients[requestID])
	h.mutex.RUnlock()
	if n == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.mutex.Lock()
	for _, client := range h.requestClients[requestID] {
		select {
		case client.Send <- data:
		default:
			h.dropClient(client)
		}
	}
	h.mutex.Unlock()
}

// BroadcastToAll sends a message to every connected client.
func (h *Hub) BroadcastToAll(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}
	h.broadcast <- data
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// readPump drains inbound frames until the peer disconnects.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

// writePump pumps hub messages to the connection.
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
